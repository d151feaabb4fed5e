package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedOption is matched by every option parse failure.
var ErrMalformedOption = errors.New("malformed option line")

// ErrUnsupportedOptionType is returned for a type token outside the known set.
var ErrUnsupportedOptionType = errors.New("unsupported option type")

// ErrUnsupportedOptionLayout is returned when a value keyword appears before
// "type". Engines in the wild always declare the type first.
var ErrUnsupportedOptionLayout = errors.New("option value declared before type")

// OptionKind is the declared type of an engine option.
type OptionKind int

const (
	// KindCheck is a boolean option.
	KindCheck OptionKind = iota + 1
	// KindSpin is a bounded integer option.
	KindSpin
	// KindCombo is a choice between fixed strings.
	KindCombo
	// KindButton triggers an action and carries no value.
	KindButton
	// KindString is a free-form string option.
	KindString
)

func (k OptionKind) String() string {
	switch k {
	case KindCheck:
		return "check"
	case KindSpin:
		return "spin"
	case KindCombo:
		return "combo"
	case KindButton:
		return "button"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("OptionKind(%d)", int(k))
	}
}

// Option is one configurable parameter advertised during the handshake.
// Only the fields belonging to Kind are meaningful.
type Option struct {
	Name string
	Kind OptionKind

	Check bool

	SpinDefault int64
	SpinMin     int64
	SpinMax     int64

	// Default holds the string and combo defaults.
	Default string
	Vars    []string
}

// fieldKeywords end an option name.
var fieldKeywords = map[string]bool{
	"type":    true,
	"default": true,
	"min":     true,
	"max":     true,
	"var":     true,
}

// ParseOption parses one "option name <NAME...> type <T> ..." line.
func ParseOption(line string) (Option, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || tokens[0] != "option" {
		return Option{}, optionErr(line, errors.New("missing option token"))
	}
	if len(tokens) < 2 || tokens[1] != "name" {
		return Option{}, optionErr(line, errors.New("missing name token"))
	}

	var nameParts []string
	rest := tokens[2:]
	for len(rest) > 0 && !fieldKeywords[rest[0]] {
		nameParts = append(nameParts, rest[0])
		rest = rest[1:]
	}
	if len(nameParts) == 0 {
		return Option{}, optionErr(line, errors.New("empty option name"))
	}
	if len(rest) == 0 {
		return Option{}, optionErr(line, errors.New("missing type"))
	}
	if rest[0] != "type" {
		return Option{}, optionErr(line, fmt.Errorf("%w: %q", ErrUnsupportedOptionLayout, rest[0]))
	}
	if len(rest) < 2 {
		return Option{}, optionErr(line, errors.New("missing type value"))
	}

	opt := Option{Name: strings.Join(nameParts, " ")}
	values := rest[2:]

	var err error
	switch rest[1] {
	case "check":
		opt.Kind = KindCheck
		opt.Check, err = parseCheck(values)
	case "spin":
		opt.Kind = KindSpin
		opt.SpinDefault, opt.SpinMin, opt.SpinMax, err = parseSpin(values)
	case "combo":
		opt.Kind = KindCombo
		opt.Default, opt.Vars, err = parseCombo(values)
	case "button":
		opt.Kind = KindButton
	case "string":
		opt.Kind = KindString
		opt.Default, err = parseString(values)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedOptionType, rest[1])
	}
	if err != nil {
		return Option{}, optionErr(line, err)
	}
	return opt, nil
}

func parseCheck(values []string) (bool, error) {
	if len(values) < 2 || values[0] != "default" {
		return false, errors.New("check option needs a default")
	}
	if len(values) > 2 {
		return false, fmt.Errorf("unexpected check field %q", values[2])
	}
	switch values[1] {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("check default %q is not a boolean", values[1])
	}
}

func parseSpin(values []string) (def, lo, hi int64, err error) {
	if len(values)%2 != 0 {
		return 0, 0, 0, errors.New("spin values are not key/value pairs")
	}

	var haveDef, haveMin, haveMax bool
	for i := 0; i < len(values); i += 2 {
		n, perr := strconv.ParseInt(values[i+1], 10, 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("spin %s: %w", values[i], perr)
		}
		switch values[i] {
		case "default":
			def, haveDef = n, true
		case "min":
			lo, haveMin = n, true
		case "max":
			hi, haveMax = n, true
		default:
			return 0, 0, 0, fmt.Errorf("unexpected spin field %q", values[i])
		}
	}

	if !haveDef || !haveMin || !haveMax {
		return 0, 0, 0, errors.New("spin option needs default, min and max")
	}
	if lo > def || def > hi {
		return 0, 0, 0, fmt.Errorf("spin bounds violated: min=%d default=%d max=%d", lo, def, hi)
	}
	return def, lo, hi, nil
}

// parseCombo reads "default <value> var <value> ...". Values may span
// several tokens; each runs up to the next "var".
func parseCombo(values []string) (string, []string, error) {
	if len(values) == 0 || values[0] != "default" {
		return "", nil, errors.New("combo option needs a default")
	}

	var groups []string
	start := 1
	for i := 1; i <= len(values); i++ {
		if i < len(values) && values[i] != "var" {
			continue
		}
		if i == start {
			return "", nil, errors.New("combo value is empty")
		}
		groups = append(groups, strings.Join(values[start:i], " "))
		start = i + 1
	}
	if len(groups) == 1 {
		return groups[0], nil, nil
	}
	return groups[0], groups[1:], nil
}

// parseString keeps every token after "default"; "<empty>" is the engine's
// spelling of the empty string.
func parseString(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	if values[0] != "default" {
		return "", fmt.Errorf("unexpected string field %q", values[0])
	}
	v := strings.Join(values[1:], " ")
	if v == "<empty>" {
		v = ""
	}
	return v, nil
}

func optionErr(line string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrMalformedOption, strings.TrimSpace(line), err)
}
