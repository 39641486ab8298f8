// Package verify holds the client-side rules of the one-time email code
// flow: what counts as a code and how often a new one may be requested.
package verify

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// ResendInterval is how long a user waits between code requests.
const ResendInterval = 60 * time.Second

// CodeTTL is how long the server honours a code.
const CodeTTL = 5 * time.Minute

var codePattern = regexp.MustCompile(`^\d{6}$`)

// NormalizeCode cleans up a typed or pasted code. Surrounding whitespace and
// inner spaces or dashes ("123 456", "123-456") are dropped; the rest must be
// exactly six ASCII digits.
func NormalizeCode(s string) (string, error) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s)

	if !codePattern.MatchString(code) {
		return "", apperrors.Validation("verification code must be 6 digits",
			map[string]string{"code": fmt.Sprintf("must be exactly %d digits", CodeLength)})
	}
	return code, nil
}

// Cooldown enforces the resend countdown. It allows one send, then refuses
// further sends until ResendInterval has passed.
type Cooldown struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	last     time.Time
}

// NewCooldown creates a cooldown with the given interval; zero means
// ResendInterval.
func NewCooldown(interval time.Duration) *Cooldown {
	if interval <= 0 {
		interval = ResendInterval
	}
	return &Cooldown{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Remaining returns how long until a resend is allowed, or zero.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return 0
	}
	if left := c.last.Add(c.interval).Sub(now); left > 0 {
		return left
	}
	return 0
}

// RemainingSeconds is Remaining rounded up to whole seconds, the unit the
// countdown is shown in.
func (c *Cooldown) RemainingSeconds(now time.Time) int {
	return int(math.Ceil(c.Remaining(now).Seconds()))
}

// TryResend consumes the send allowance at now. It returns a RATE_LIMITED
// error while cooling down.
func (c *Cooldown) TryResend(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.limiter.AllowN(now, 1) {
		left := c.last.Add(c.interval).Sub(now)
		secs := int(math.Ceil(left.Seconds()))
		return apperrors.RateLimited(fmt.Sprintf("请等待%d秒后再试", secs))
	}
	c.last = now
	return nil
}

// Reset clears the countdown, for instance after the server rejected the
// request so no code was sent.
func (c *Cooldown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Every(c.interval), 1)
	c.last = time.Time{}
}

// Cooldowns keeps one Cooldown per key, typically an email address.
type Cooldowns struct {
	mu       sync.Mutex
	interval time.Duration
	byKey    map[string]*Cooldown
}

// NewCooldowns creates a keyed set of cooldowns sharing one interval.
func NewCooldowns(interval time.Duration) *Cooldowns {
	return &Cooldowns{interval: interval, byKey: make(map[string]*Cooldown)}
}

// For returns the cooldown for key, creating it on first use. Keys are
// compared case-insensitively.
func (c *Cooldowns) For(key string) *Cooldown {
	key = strings.ToLower(strings.TrimSpace(key))
	c.mu.Lock()
	defer c.mu.Unlock()
	cd, ok := c.byKey[key]
	if !ok {
		cd = NewCooldown(c.interval)
		c.byKey[key] = cd
	}
	return cd
}
