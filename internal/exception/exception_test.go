package exception

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestException_ErrorsIs(t *testing.T) {
	err := fmt.Errorf("export failed: %w",
		New(OptionError, ErrColorSeparatedImageRequired, "rose.png"))

	if !errors.Is(err, ErrColorSeparatedImageRequired) {
		t.Error("wrapped exception should match its sentinel")
	}
	if errors.Is(err, ErrColormappedImageRequired) {
		t.Error("exception should not match an unrelated sentinel")
	}
	if !strings.Contains(err.Error(), "rose.png") {
		t.Errorf("message should carry the description, got %q", err.Error())
	}
	if SeverityOf(err) != OptionError {
		t.Errorf("SeverityOf: got %v, want %v", SeverityOf(err), OptionError)
	}
}

func TestSeverity_Levels(t *testing.T) {
	tests := []struct {
		sev     Severity
		warning bool
		isError bool
	}{
		{UndefinedSeverity, false, false},
		{CorruptImageWarning, true, false},
		{PolicyWarning, true, false},
		{ResourceLimitError, false, true},
		{PolicyError, false, true},
		{CacheFatalError, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.sev.String(), func(t *testing.T) {
			if tt.sev.IsWarning() != tt.warning {
				t.Errorf("IsWarning: got %v, want %v", tt.sev.IsWarning(), tt.warning)
			}
			if tt.sev.IsError() != tt.isError {
				t.Errorf("IsError: got %v, want %v", tt.sev.IsError(), tt.isError)
			}
		})
	}
}

func TestSeverityOf_PlainError(t *testing.T) {
	if SeverityOf(nil) != UndefinedSeverity {
		t.Error("nil error should have undefined severity")
	}
	if SeverityOf(errors.New("boom")) != ErrorLevel {
		t.Error("plain errors should count as errors")
	}
	if IsWarning(errors.New("boom")) {
		t.Error("plain errors are not warnings")
	}
}

func TestSink_WarningsDoNotFail(t *testing.T) {
	var sink Sink
	sink.Throw(CorruptImageWarning, ErrInvalidColormapIndex, "a.gif")
	sink.Throw(CoderWarning, ErrImproperImageHeader, "b.miff")

	if err := sink.Err(); err != nil {
		t.Errorf("warnings only: Err() = %v, want nil", err)
	}
	if got := len(sink.Warnings()); got != 2 {
		t.Errorf("Warnings: got %d, want 2", got)
	}
	if sink.Severity() != CoderWarning {
		t.Errorf("Severity: got %v, want %v", sink.Severity(), CoderWarning)
	}
}

func TestSink_ErrReturnsWorst(t *testing.T) {
	var sink Sink
	sink.Throw(CorruptImageWarning, ErrInvalidColormapIndex, "")
	sink.Throw(OptionError, ErrBufferTooSmall, "first")
	sink.Throw(PolicyError, ErrNotAuthorized, "PS")
	sink.Add(errors.New("plain"))

	err := sink.Err()
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Err: got %v, want not-authorized", err)
	}
	sink.Clear()
	if sink.Err() != nil || len(sink.Exceptions()) != 0 {
		t.Error("Clear should drop everything")
	}
}

func TestSink_Nil(t *testing.T) {
	var sink *Sink
	sink.Add(errors.New("ignored"))
	sink.Throw(OptionError, ErrInvalidDepth, "")
	if sink.Err() != nil || sink.Severity() != UndefinedSeverity || sink.Exceptions() != nil {
		t.Error("nil sink should discard everything")
	}
}

func TestSink_Concurrent(t *testing.T) {
	var sink Sink
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Throw(StreamWarning, ErrShortWrite, "")
		}()
	}
	wg.Wait()
	if got := len(sink.Exceptions()); got != 50 {
		t.Errorf("got %d exceptions, want 50", got)
	}
}
