package mealog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Line tokens.
const (
	TokenStartMeal       = "INICIO-COMIDA"
	TokenStartDish       = "INICIO-PLATO"
	TokenIngredient      = "ALIMENTO"
	TokenEndMeal         = "FIN-COMIDA"
	TokenEndTransmission = "FIN-TRANSMISION"
)

// Date and time layouts used by FIN-COMIDA and the CSV log.
const (
	DateLayout = "02.01.2006"
	TimeLayout = "15:04:05"
)

// Kind identifies a log line.
type Kind int

const (
	KindStartMeal Kind = iota + 1
	KindStartDish
	KindIngredient
	KindEndMeal
	KindEndTransmission
)

func (k Kind) String() string {
	switch k {
	case KindStartMeal:
		return TokenStartMeal
	case KindStartDish:
		return TokenStartDish
	case KindIngredient:
		return TokenIngredient
	case KindEndMeal:
		return TokenEndMeal
	case KindEndTransmission:
		return TokenEndTransmission
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrMalformedLine is wrapped by every Parse failure.
var ErrMalformedLine = errors.New("malformed line")

// Line is one parsed log line. Only the fields relevant to Kind are set.
type Line struct {
	Kind    Kind
	GroupID int
	Weight  float64
	Barcode string
	At      time.Time
}

// StartMeal, StartDish and EndTransmission are the fieldless lines.
func StartMeal() Line       { return Line{Kind: KindStartMeal} }
func StartDish() Line       { return Line{Kind: KindStartDish} }
func EndTransmission() Line { return Line{Kind: KindEndTransmission} }

// Ingredient returns an ALIMENTO line. An empty barcode is omitted.
func Ingredient(groupID int, weight float64, barcode string) Line {
	return Line{Kind: KindIngredient, GroupID: groupID, Weight: weight, Barcode: barcode}
}

// EndMeal returns a FIN-COMIDA line stamped at, truncated to seconds.
func EndMeal(at time.Time) Line {
	return Line{Kind: KindEndMeal, At: at.Truncate(time.Second)}
}

// String formats l in wire form, without a terminator.
func (l Line) String() string {
	switch l.Kind {
	case KindIngredient:
		s := TokenIngredient + "," + strconv.Itoa(l.GroupID) + "," + FormatWeight(l.Weight)
		if l.Barcode != "" {
			s += "," + l.Barcode
		}
		return s
	case KindEndMeal:
		return TokenEndMeal + "," + l.At.Format(DateLayout) + "," + l.At.Format(TimeLayout)
	default:
		return l.Kind.String()
	}
}

// FormatWeight prints a weight with the shortest exact decimal form.
func FormatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// Parse parses one line. Surrounding whitespace is ignored. Dates are
// interpreted in UTC.
func Parse(s string) (Line, error) {
	return ParseIn(s, time.UTC)
}

// ParseIn parses one line, interpreting FIN-COMIDA stamps in loc.
func ParseIn(s string, loc *time.Location) (Line, error) {
	s = strings.TrimSpace(s)
	fields := strings.Split(s, ",")
	switch fields[0] {
	case TokenStartMeal, TokenStartDish, TokenEndTransmission:
		if len(fields) != 1 {
			return Line{}, fmt.Errorf("%w: %q: unexpected fields", ErrMalformedLine, s)
		}
		switch fields[0] {
		case TokenStartMeal:
			return StartMeal(), nil
		case TokenStartDish:
			return StartDish(), nil
		}
		return EndTransmission(), nil

	case TokenIngredient:
		if len(fields) != 3 && len(fields) != 4 {
			return Line{}, fmt.Errorf("%w: %q: want 2 or 3 fields", ErrMalformedLine, s)
		}
		group, err := strconv.Atoi(fields[1])
		if err != nil || group <= 0 {
			return Line{}, fmt.Errorf("%w: %q: bad group id", ErrMalformedLine, s)
		}
		weight, err := strconv.ParseFloat(fields[2], 64)
		if err != nil || weight < 0 {
			return Line{}, fmt.Errorf("%w: %q: bad weight", ErrMalformedLine, s)
		}
		l := Ingredient(group, weight, "")
		if len(fields) == 4 {
			if fields[3] == "" {
				return Line{}, fmt.Errorf("%w: %q: empty barcode", ErrMalformedLine, s)
			}
			l.Barcode = fields[3]
		}
		return l, nil

	case TokenEndMeal:
		if len(fields) != 3 {
			return Line{}, fmt.Errorf("%w: %q: want date and time", ErrMalformedLine, s)
		}
		at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, fields[1]+" "+fields[2], loc)
		if err != nil {
			return Line{}, fmt.Errorf("%w: %q: %v", ErrMalformedLine, s, err)
		}
		return EndMeal(at), nil
	}
	return Line{}, fmt.Errorf("%w: %q", ErrMalformedLine, s)
}

// ParseAll parses every string in order, stopping at the first error.
func ParseAll(raw []string) ([]Line, error) {
	out := make([]Line, 0, len(raw))
	for i, s := range raw {
		l, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// Strings formats lines in wire form.
func Strings(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}
