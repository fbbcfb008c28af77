// Package policy decides which coders, delegates and paths may be used and
// holds process-wide resource settings such as the memory limit.
package policy

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"

	"github.com/ironsheep/pixelcodec/internal/exception"
)

// Rights is a bitmask of operations.
type Rights uint8

const (
	NoRights      Rights = 0
	ReadRights    Rights = 1 << 0
	WriteRights   Rights = 1 << 1
	ExecuteRights Rights = 1 << 2
	AllRights            = ReadRights | WriteRights | ExecuteRights
)

func (r Rights) String() string {
	if r == NoRights {
		return "none"
	}
	var parts []string
	if r&ReadRights != 0 {
		parts = append(parts, "read")
	}
	if r&WriteRights != 0 {
		parts = append(parts, "write")
	}
	if r&ExecuteRights != 0 {
		parts = append(parts, "execute")
	}
	return strings.Join(parts, "|")
}

// ParseRights accepts "none", "all" or a "|" separated list of "read",
// "write" and "execute".
func ParseRights(s string) (Rights, error) {
	var r Rights
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "none":
		case "read":
			r |= ReadRights
		case "write":
			r |= WriteRights
		case "execute":
			r |= ExecuteRights
		case "all":
			r |= AllRights
		default:
			return NoRights, fmt.Errorf("unknown right %q", part)
		}
	}
	return r, nil
}

// Domain is the kind of resource a rule applies to.
type Domain int

const (
	UndefinedDomain Domain = iota
	CoderDomain
	DelegateDomain
	PathDomain
	ModuleDomain
	ResourceDomain
	CacheDomain
)

var domainNames = []string{"undefined", "coder", "delegate", "path", "module", "resource", "cache"}

func (d Domain) String() string {
	if d < 0 || int(d) >= len(domainNames) {
		return fmt.Sprintf("Domain(%d)", int(d))
	}
	return domainNames[d]
}

// ParseDomain maps a domain name to its Domain.
func ParseDomain(s string) (Domain, error) {
	for i, name := range domainNames {
		if i > 0 && strings.EqualFold(name, s) {
			return Domain(i), nil
		}
	}
	return UndefinedDomain, fmt.Errorf("unknown policy domain %q", s)
}

// Rule grants Rights to every name in Domain matching Pattern.
//
// Patterns are globs whose * and ? also match the path separator, so
// "/etc/*" covers the whole tree below /etc. Path patterns are case
// sensitive; the other domains compare case-insensitively.
type Rule struct {
	Domain  Domain
	Rights  Rights
	Pattern string
}

func (r Rule) compile() (glob.Glob, error) {
	pattern := r.Pattern
	if r.Domain != PathDomain {
		pattern = strings.ToUpper(pattern)
	}
	return glob.Compile(pattern)
}

// subjects returns the spellings of name a rule is matched against. A path
// is made absolute and cleaned, and its symlinks are resolved as far as they
// exist; a rule matching either form applies.
func subjects(d Domain, name string) []string {
	if d != PathDomain {
		return []string{strings.ToUpper(name)}
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return []string{filepath.Clean(name)}
	}
	out := []string{abs}
	if real := resolve(abs); real != abs {
		out = append(out, real)
	}
	return out
}

// resolve evaluates the symlinks of the longest existing prefix of abs.
func resolve(abs string) string {
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	dir, base := filepath.Split(abs)
	dir = filepath.Clean(dir)
	if dir == abs || base == "" {
		return abs
	}
	return filepath.Join(resolve(dir), base)
}

// Setting names understood by the engine.
const (
	MemorySetting    = "memory"
	MemoryMapSetting = "memory-map"
)

// Policy is an immutable rule set plus name/value settings.
type Policy struct {
	rules       []Rule
	globs       []glob.Glob
	settings    map[string]string
	memoryLimit uint64
}

// New builds a policy. The "memory" setting, when present, is parsed as a
// byte size such as "512MiB".
func New(rules []Rule, settings map[string]string) (*Policy, error) {
	p := &Policy{
		rules:    append([]Rule(nil), rules...),
		settings: make(map[string]string, len(settings)),
	}
	for _, r := range p.rules {
		g, err := r.compile()
		if err != nil {
			return nil, exception.Newf(exception.ConfigureError, exception.ErrInvalidConfiguration,
				"%s pattern %q: %v", r.Domain, r.Pattern, err)
		}
		p.globs = append(p.globs, g)
	}
	for k, v := range settings {
		p.settings[strings.ToLower(k)] = v
	}
	if v := p.settings[MemorySetting]; v != "" && v != "unlimited" {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return nil, exception.Newf(exception.ConfigureError, exception.ErrInvalidConfiguration,
				"resource memory %q: %v", v, err)
		}
		p.memoryLimit = n
	}
	return p, nil
}

// IsAuthorized reports whether name may be used for the rights r in domain
// d. Rules are applied in order and the last matching rule decides; with no
// matching rule everything is allowed.
func (p *Policy) IsAuthorized(d Domain, r Rights, name string) bool {
	if p == nil {
		return true
	}
	var names []string
	authorized := true
	for i, rule := range p.rules {
		if rule.Domain != d {
			continue
		}
		if names == nil {
			names = subjects(d, name)
		}
		for _, n := range names {
			if p.globs[i].Match(n) {
				authorized = rule.Rights&r == r
				break
			}
		}
	}
	return authorized
}

// Authorize returns a PolicyError when IsAuthorized would report false.
func (p *Policy) Authorize(d Domain, r Rights, name string) error {
	if p.IsAuthorized(d, r, name) {
		return nil
	}
	return exception.Newf(exception.PolicyError, exception.ErrNotAuthorized,
		"%s %s `%s'", d, r, name)
}

// Value returns a setting, or "" when unset.
func (p *Policy) Value(name string) string {
	if p == nil {
		return ""
	}
	return p.settings[strings.ToLower(name)]
}

// MemoryLimit is the largest pixel allocation in bytes; 0 means
// unlimited.
func (p *Policy) MemoryLimit() uint64 {
	if p == nil {
		return 0
	}
	return p.memoryLimit
}

// CheckMemory fails with a ResourceLimitError when n bytes exceed the
// memory limit.
func (p *Policy) CheckMemory(n uint64) error {
	if limit := p.MemoryLimit(); limit > 0 && n > limit {
		return exception.Newf(exception.ResourceLimitError, exception.ErrMemoryAllocationFailed,
			"%s requested, limit %s", humanize.IBytes(n), humanize.IBytes(limit))
	}
	return nil
}

// Rules returns a copy of the rule list.
func (p *Policy) Rules() []Rule { return append([]Rule(nil), p.rules...) }

var current atomic.Pointer[Policy]

func init() {
	current.Store(&Policy{settings: map[string]string{}})
}

// Default returns the process-wide policy.
func Default() *Policy { return current.Load() }

// SetDefault replaces the process-wide policy. Components that cache a
// setting at first use, such as the stream buffer backend, keep the value
// they saw first.
func SetDefault(p *Policy) {
	if p == nil {
		p = &Policy{settings: map[string]string{}}
	}
	current.Store(p)
}
