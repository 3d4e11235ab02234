package race

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	// CodeAlphabet excludes 0, O, 1 and I.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// CodeLength is the number of symbols in a room code.
	CodeLength = 6
)

// CodeGenerator produces candidate room codes.
type CodeGenerator interface {
	Next() string
}

// RandomCodes draws codes uniformly from CodeAlphabet.
type RandomCodes struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomCodes returns a generator seeded with the current time.
func NewRandomCodes() *RandomCodes {
	return &RandomCodes{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Next returns a fresh candidate code.
func (g *RandomCodes) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = CodeAlphabet[g.rnd.Intn(len(CodeAlphabet))]
	}
	return string(b)
}

// NormalizeCode trims and uppercases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed room code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
