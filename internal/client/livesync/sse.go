package livesync

import (
	"bufio"
	"io"
	"strings"
)

// event is one server-sent event. Only the fields the client acts on are
// kept.
type event struct {
	Name string
	Data string
}

const maxLine = 1 << 20

// readEvents parses a text/event-stream body and calls emit for every
// complete event. It returns the scanner error, or nil at EOF. A partial
// event at EOF is dropped.
func readEvents(r io.Reader, emit func(event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)

	var (
		name    string
		data    []string
		hasData bool
	)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")

		if line == "" {
			if hasData {
				emit(event{Name: name, Data: strings.Join(data, "\n")})
			}
			name, data, hasData = "", data[:0], false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			name = value
		}
	}
	return sc.Err()
}
