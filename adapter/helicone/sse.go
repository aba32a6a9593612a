package helicone

import (
	"bufio"
	"io"
	"strings"
)

// doneSentinel terminates a chat-completions event stream.
const doneSentinel = "[DONE]"

// eventReader yields the data payload of each server-sent event.
// Lines without a data field are ignored; consecutive data lines are joined with "\n".
type eventReader struct {
	r *bufio.Reader
}

func newEventReader(r io.Reader) *eventReader {
	return &eventReader{r: bufio.NewReader(r)}
}

// next returns the next non-empty event payload, or io.EOF when the body ends.
func (e *eventReader) next() (string, error) {
	var data []string
	for {
		line, err := e.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(v, " "))
		}
		if err == io.EOF {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			return "", io.EOF
		}
	}
}
