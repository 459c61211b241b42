package transcript

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// The on-disk form is one event per line:
//
//	[HH:MM:SS.mmm --> HH:MM:SS.mmm] text
//
// An empty transcript is an empty file.

var lineRe = regexp.MustCompile(`^\[(\d{2,}):(\d{2}):(\d{2})\.(\d{3}) --> (\d{2,}):(\d{2}):(\d{2})\.(\d{3})\] (.+)$`)

// FormatTimestamp renders d as HH:MM:SS.mmm, truncated to the millisecond.
func FormatTimestamp(d time.Duration) string {
	return formatClock(d, '.')
}

// truncated returns t with every offset cut to the millisecond the line
// format can hold.
func (t Transcript) truncated() Transcript {
	out := Transcript{Events: make([]CaptionEvent, len(t.Events))}
	for i, ev := range t.Events {
		ev.Start = ev.Start.Truncate(time.Millisecond)
		ev.End = ev.End.Truncate(time.Millisecond)
		out.Events[i] = ev
	}
	return out
}

func formatClock(d time.Duration, sep byte) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// Encode writes t in the line format. Offsets are validated after truncation
// to milliseconds, so Encode never writes a file Decode would refuse.
func Encode(w io.Writer, t Transcript) error {
	if err := t.Validate(); err != nil {
		return errors.Wrap(err, "encode transcript")
	}
	written := t.truncated()
	if err := written.Validate(); err != nil {
		return errors.Wrap(err, "encode transcript at millisecond precision")
	}
	bw := bufio.NewWriter(w)
	for _, ev := range written.Events {
		if _, err := fmt.Fprintf(bw, "[%s --> %s] %s\n", FormatTimestamp(ev.Start), FormatTimestamp(ev.End), ev.Text); err != nil {
			return errors.Wrap(err, "encode transcript")
		}
	}
	return errors.Wrap(bw.Flush(), "encode transcript")
}

// Decode parses the line format. Blank lines and CRLF endings are tolerated;
// anything else that does not match is an error naming the line.
func Decode(r io.Reader) (Transcript, error) {
	var t Transcript
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			return Transcript{}, errors.Errorf("transcript line %d: malformed %q", n, line)
		}
		start, err := parseClock(m[1:5])
		if err != nil {
			return Transcript{}, errors.Wrapf(err, "transcript line %d", n)
		}
		end, err := parseClock(m[5:9])
		if err != nil {
			return Transcript{}, errors.Wrapf(err, "transcript line %d", n)
		}
		t.Events = append(t.Events, CaptionEvent{Text: m[9], Start: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return Transcript{}, errors.Wrap(err, "read transcript")
	}
	if err := t.Validate(); err != nil {
		return Transcript{}, errors.Wrap(err, "decode transcript")
	}
	return t, nil
}

func parseClock(parts []string) (time.Duration, error) {
	var vals [4]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", p)
		}
		vals[i] = v
	}
	if vals[1] > 59 || vals[2] > 59 {
		return 0, errors.Errorf("clock field out of range in %s", strings.Join(parts, ":"))
	}
	return time.Duration(vals[0])*time.Hour +
		time.Duration(vals[1])*time.Minute +
		time.Duration(vals[2])*time.Second +
		time.Duration(vals[3])*time.Millisecond, nil
}

func Marshal(t Transcript) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(data []byte) (Transcript, error) {
	return Decode(bytes.NewReader(data))
}

// WriteFile persists t at path.
func WriteFile(path string, t Transcript) error {
	data, err := Marshal(t)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write transcript %s", path)
}

func ReadFile(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, errors.Wrapf(err, "read transcript %s", path)
	}
	return Unmarshal(data)
}
