package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxReferenceLength is the longest reference the gateway accepts
	MaxReferenceLength = 20
	defaultMerchantTag = "AH"
	emptyPrefix        = "REF"
	maxPrefixLength    = 8
	maxSuffixLength    = 10
	minSuffixLength    = 8
	timeChars          = 3
	base36Alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ReferenceGenerator derives gateway references of the form
// <ORDER PREFIX>-<TAG>-<SUFFIX>, e.g. ORD1-AH-K3F9Z2Q7XA.
type ReferenceGenerator struct {
	tag string
	now func() time.Time
}

// NewReferenceGenerator creates a generator for a merchant tag of at most
// 4 alphanumerics. An empty tag defaults to AH.
func NewReferenceGenerator(tag string) *ReferenceGenerator {
	tag = sanitize(tag)
	if tag == "" {
		tag = defaultMerchantTag
	}
	if len(tag) > 4 {
		tag = tag[:4]
	}
	return &ReferenceGenerator{tag: tag, now: time.Now}
}

// Generate returns a new reference for orderID. It has no side effects.
func (g *ReferenceGenerator) Generate(orderID string) string {
	prefix := sanitize(orderID)
	if prefix == "" {
		prefix = emptyPrefix
	}
	// keep room for at least minSuffixLength characters of entropy
	prefixLimit := MaxReferenceLength - len(g.tag) - 2 - minSuffixLength
	if prefixLimit > maxPrefixLength {
		prefixLimit = maxPrefixLength
	}
	if len(prefix) > prefixLimit {
		prefix = prefix[:prefixLimit]
	}

	suffixLen := MaxReferenceLength - len(prefix) - len(g.tag) - 2
	if suffixLen > maxSuffixLength {
		suffixLen = maxSuffixLength
	}

	return prefix + "-" + g.tag + "-" + g.suffix(suffixLen)
}

// suffix is a short base36 time component followed by random characters
func (g *ReferenceGenerator) suffix(n int) string {
	ts := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	if len(ts) > timeChars {
		ts = ts[len(ts)-timeChars:]
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(ts)
	for b.Len() < n {
		for _, c := range uuid.New() {
			if b.Len() == n {
				break
			}
			b.WriteByte(base36Alphabet[int(c)%len(base36Alphabet)])
		}
	}
	return b.String()
}

// sanitize keeps upper-cased ASCII letters and digits only
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
