package ftransfer

import "io"

// ProgressWriter wraps an io.Writer and reports progress via a callback.
// Get uses it when WithProgress is set.
type ProgressWriter struct {
	// Writer is the underlying writer
	Writer io.Writer

	// Callback is called after each Write with the total bytes written so far
	Callback func(bytesTransferred int64)

	// Total is where counting starts, e.g. bytes already written elsewhere
	Total int64
}

// Write implements io.Writer.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Total += int64(n)
	if pw.Callback != nil && n > 0 {
		pw.Callback(pw.Total)
	}
	return n, err
}
