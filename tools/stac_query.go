package tools

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// stacQueryPattern requires bbox to precede datetime, joined by the literal
// " && ".
var stacQueryPattern = regexp.MustCompile(`bbox=\[([^\]]*)\] && datetime=\[([^\]]*)\]`)

var (
	bboxSegment     = regexp.MustCompile(`bbox=\[`)
	datetimeSegment = regexp.MustCompile(`datetime=\[`)
)

// Coordinate is one bounding box value. It remembers whether the source text
// was an integer or a decimal so re-encoding reproduces the same kind.
type Coordinate struct {
	value   float64
	integer bool
}

// IntCoordinate builds an integral coordinate.
func IntCoordinate(v int64) Coordinate { return Coordinate{value: float64(v), integer: true} }

// FloatCoordinate builds a decimal coordinate.
func FloatCoordinate(v float64) Coordinate { return Coordinate{value: v} }

// ParseCoordinate reads a literal: text containing '.' is a float, anything
// else must be an integer.
func ParseCoordinate(text string) (Coordinate, error) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, ".") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Coordinate{}, fmt.Errorf("%w: invalid number %q", framework.ErrMalformedQuery, text)
		}
		return FloatCoordinate(v), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: invalid integer %q", framework.ErrMalformedQuery, text)
	}
	return IntCoordinate(v), nil
}

// IsInteger reports whether the coordinate came from an integer literal.
func (c Coordinate) IsInteger() bool { return c.integer }

// Float64 returns the numeric value.
func (c Coordinate) Float64() float64 { return c.value }

// String renders the literal; decimals always carry a fractional part.
func (c Coordinate) String() string {
	if c.integer {
		return strconv.FormatInt(int64(c.value), 10)
	}
	s := strconv.FormatFloat(c.value, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// MarshalJSON keeps integers as integers and decimals as decimals.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON applies the same integer/decimal rule as ParseCoordinate.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if strings.ContainsAny(text, "eE") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		*c = FloatCoordinate(v)
		return nil
	}
	parsed, err := ParseCoordinate(text)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BoundingBox is (west, south, east, north).
type BoundingBox [4]Coordinate

// West returns the minimum longitude.
func (b BoundingBox) West() float64 { return b[0].Float64() }

// South returns the minimum latitude.
func (b BoundingBox) South() float64 { return b[1].Float64() }

// East returns the maximum longitude.
func (b BoundingBox) East() float64 { return b[2].Float64() }

// North returns the maximum latitude.
func (b BoundingBox) North() float64 { return b[3].Float64() }

// String renders the box in the action grammar form.
func (b BoundingBox) String() string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DateTimeRange is an ordered (start, end) pair. Chronology is not checked.
type DateTimeRange [2]string

// Interval renders the range in the STAC API "start/end" form.
func (d DateTimeRange) Interval() string {
	return d[0] + "/" + d[1]
}

// STACQuery is the parsed argument of a stac action.
type STACQuery struct {
	BBox     BoundingBox
	Datetime DateTimeRange
}

// String re-serializes the query in the action grammar.
func (q STACQuery) String() string {
	return fmt.Sprintf("bbox=%s && datetime=['%s', '%s']", q.BBox, q.Datetime[0], q.Datetime[1])
}

// ParseSTACQuery parses `bbox=[v1,v2,v3,v4] && datetime=['t1','t2']`.
func ParseSTACQuery(argument string) (STACQuery, error) {
	m := stacQueryPattern.FindStringSubmatch(argument)
	if m == nil {
		switch {
		case !bboxSegment.MatchString(argument):
			return STACQuery{}, fmt.Errorf("%w: missing bbox=[...] segment", framework.ErrMalformedQuery)
		case !datetimeSegment.MatchString(argument):
			return STACQuery{}, fmt.Errorf("%w: missing datetime=[...] segment", framework.ErrMalformedQuery)
		default:
			return STACQuery{}, fmt.Errorf("%w: expected bbox=[...] && datetime=[...], got %q", framework.ErrMalformedQuery, argument)
		}
	}

	values := splitList(m[1])
	if len(values) != 4 {
		return STACQuery{}, fmt.Errorf("%w: bbox needs 4 values, got %d", framework.ErrMalformedQuery, len(values))
	}
	var q STACQuery
	for i, v := range values {
		c, err := ParseCoordinate(v)
		if err != nil {
			return STACQuery{}, err
		}
		q.BBox[i] = c
	}

	stamps := splitList(m[2])
	if len(stamps) != 2 {
		return STACQuery{}, fmt.Errorf("%w: datetime needs 2 values, got %d", framework.ErrMalformedQuery, len(stamps))
	}
	for i, s := range stamps {
		s = strings.Trim(s, `'"`)
		if s == "" {
			return STACQuery{}, fmt.Errorf("%w: empty datetime value", framework.ErrMalformedQuery)
		}
		q.Datetime[i] = s
	}
	return q, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
