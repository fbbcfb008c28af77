// Package delegate runs external programs for formats that have no
// built-in coder.
//
// A decode delegate converts a file of its format into a format that can be
// read natively; an encode delegate converts a natively written file into
// its format. Commands are shell templates: %i is the input file, %o the
// output file, %m the format tag and %% a literal percent sign. Substitutions
// are quoted for the shell, so templates may use them bare or inside quotes.
package delegate

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/pixelcodec/internal/exception"
)

// Delegate describes one external conversion.
type Delegate struct {
	// Decode or Encode names the format the delegate handles; exactly one
	// is set.
	Decode string
	Encode string

	Command string

	// Format is the native format on the other side of the conversion:
	// what a decode delegate produces, or what is written for an encode
	// delegate to consume.
	Format string
}

// Tag returns the format the delegate handles.
func (d Delegate) Tag() string {
	if d.Decode != "" {
		return strings.ToUpper(d.Decode)
	}
	return strings.ToUpper(d.Encode)
}

// Expand substitutes the template placeholders. Substituted values are
// escaped for the quoting context they land in (bare, single or double
// quoted), so file names never reach the shell as syntax.
func (d Delegate) Expand(input, output string) string {
	var b strings.Builder
	cmd := d.Command
	var quote byte
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if c == '%' && i+1 < len(cmd) {
			i++
			switch cmd[i] {
			case 'i':
				b.WriteString(shellEscape(argument(input), quote))
			case 'o':
				b.WriteString(shellEscape(argument(output), quote))
			case 'm':
				b.WriteString(shellEscape(d.Tag(), quote))
			case '%':
				b.WriteByte('%')
			default:
				b.WriteByte('%')
				b.WriteByte(cmd[i])
			}
			continue
		}

		b.WriteByte(c)
		switch {
		case c == '\\' && quote != '\'' && i+1 < len(cmd):
			i++
			b.WriteByte(cmd[i])
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case c == quote:
			quote = 0
		}
	}
	return b.String()
}

// argument keeps a file name from being read as an option.
func argument(name string) string {
	if strings.HasPrefix(name, "-") {
		return "./" + name
	}
	return name
}

// shellEscape renders s as literal text inside the given quote context.
func shellEscape(s string, quote byte) string {
	switch quote {
	case '\'':
		return strings.ReplaceAll(s, "'", `'\''`)
	case '"':
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '"', '\\', '$', '`':
				b.WriteByte('\\')
			}
			b.WriteByte(s[i])
		}
		return b.String()
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Run executes the delegate through the shell.
func (d Delegate) Run(ctx context.Context, input, output string) error {
	command := d.Expand(input, output)
	slog.Debug("delegate: running", "tag", d.Tag(), "command", command)

	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", command).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return exception.Newf(exception.DelegateError, exception.ErrDelegateFailed,
			"%s: %s", d.Tag(), msg)
	}
	return nil
}

// Table indexes delegates by the format they handle.
type Table struct {
	mu       sync.RWMutex
	decoders map[string]Delegate
	encoders map[string]Delegate
}

// NewTable builds a table; later entries replace earlier ones for the same
// format.
func NewTable(delegates []Delegate) *Table {
	t := &Table{
		decoders: make(map[string]Delegate),
		encoders: make(map[string]Delegate),
	}
	for _, d := range delegates {
		t.Add(d)
	}
	return t
}

// Add registers d.
func (t *Table) Add(d Delegate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d.Decode != "" {
		t.decoders[d.Tag()] = d
	} else {
		t.encoders[d.Tag()] = d
	}
}

// Decoder returns the decode delegate for tag.
func (t *Table) Decoder(tag string) (Delegate, bool) {
	if t == nil {
		return Delegate{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.decoders[strings.ToUpper(tag)]
	return d, ok
}

// Encoder returns the encode delegate for tag.
func (t *Table) Encoder(tag string) (Delegate, bool) {
	if t == nil {
		return Delegate{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.encoders[strings.ToUpper(tag)]
	return d, ok
}

// TempPath returns a fresh file name in dir with the given extension.
func TempPath(dir, ext string) string {
	name := "pixelcodec-" + uuid.NewString()
	if ext != "" {
		name += "." + strings.ToLower(ext)
	}
	return filepath.Join(dir, name)
}

func (d Delegate) String() string {
	if d.Decode != "" {
		return fmt.Sprintf("decode %s -> %s", d.Tag(), d.Format)
	}
	return fmt.Sprintf("encode %s -> %s", d.Format, d.Tag())
}
