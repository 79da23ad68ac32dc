package receiving

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fallbackBrandPrefix is used when a line carries no brand.
const fallbackBrandPrefix = "TIR"

var upperCaser = cases.Upper(language.Und)

// Clock supplies the timestamp component of generated serials. Injected so
// generation is deterministic under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Generator produces candidate serial numbers for a line's units.
type Generator struct {
	clock Clock
}

// NewGenerator constructs a Generator. A nil clock falls back to the system clock.
func NewGenerator(clock Clock) *Generator {
	if clock == nil {
		clock = systemClock{}
	}
	return &Generator{clock: clock}
}

// GenerateBatch overwrites every serial slot of the line with generated
// values, one per unit being received. The pattern is
// {brandPrefix}-{sizeNormalized}-{timeSuffix}-{sequence}: three brand
// characters, the size with any "/" replaced by "-", the last six digits of
// the epoch-millisecond timestamp, and a 1-based zero-padded sequence.
func (g *Generator) GenerateBatch(line *LineDraft) []string {
	if line == nil || line.ReceiveQty <= 0 {
		return nil
	}
	prefix := brandPrefix(line.Line.Brand)
	size := strings.ReplaceAll(line.Line.Size, "/", "-")
	suffix := g.clock.Now().UnixMilli() % 1_000_000

	serials := make([]string, line.ReceiveQty)
	for i := range serials {
		serials[i] = fmt.Sprintf("%s-%s-%06d-%03d", prefix, size, suffix, i+1)
	}
	line.Serials = serials
	return serials
}

// DefaultBatchNumber derives the deterministic batch label for a line.
func DefaultBatchNumber(poNumber string, poLineID int64) string {
	return fmt.Sprintf("BATCH-%s-%d", poNumber, poLineID)
}

// NormalizeSerial trims and upper-cases a serial entry. Blank entries
// normalize to the empty string.
func NormalizeSerial(s string) string {
	return upperCaser.String(strings.TrimSpace(s))
}

// CleanSerials returns the non-blank serials of a line, trimmed and upper-cased,
// preserving entry order.
func CleanSerials(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	for _, s := range raw {
		if normalized := NormalizeSerial(s); normalized != "" {
			cleaned = append(cleaned, normalized)
		}
	}
	return cleaned
}

func brandPrefix(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return fallbackBrandPrefix
	}
	prefix := []rune(upperCaser.String(brand))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return string(prefix)
}
