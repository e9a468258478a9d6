package dto

// BufferedFrame holds an annotated JPEG frame waiting to be flushed to disk.
type BufferedFrame struct {
	Timestamp string
	StudentID string
	Name      string
	Data      []byte
}
