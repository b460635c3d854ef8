package result

import "fmt"

// Status is the verdict shown to the user after a batch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Classify compares how many files were converted against how many were
// submitted. An empty batch is never a success.
func Classify(processed, requested int) Status {
	switch {
	case processed <= 0:
		return StatusError
	case processed >= requested:
		return StatusSuccess
	default:
		return StatusWarning
	}
}

// Message renders the user-facing text, identical for every status.
func Message(processed, requested int) string {
	return fmt.Sprintf("Processed %d of %d images", processed, requested)
}

// Outcome is the result of one dispatch.
type Outcome struct {
	Processed int  `json:"processed"`
	Requested int  `json:"requested"`
	Failed    bool `json:"failed"` // the conversion call itself returned an error
}

func (o Outcome) Status() Status  { return Classify(o.Processed, o.Requested) }
func (o Outcome) Message() string { return Message(o.Processed, o.Requested) }
