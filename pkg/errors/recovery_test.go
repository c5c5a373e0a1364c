package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name       string
		fn         func() error
		wantErr    bool
		wantSubstr []string
	}{
		{
			name: "panic is converted",
			fn: func() (err error) {
				defer Recover(&err, "Bench.Fit")
				panic("index out of range")
			},
			wantErr:    true,
			wantSubstr: []string{"panic in Bench.Fit", "index out of range"},
		},
		{
			name: "no panic",
			fn: func() (err error) {
				defer Recover(&err, "Bench.Fit")
				return nil
			},
		},
		{
			name: "existing error is kept",
			fn: func() (err error) {
				defer Recover(&err, "Bench.Fit")
				err = fmt.Errorf("fit failed")
				panic("after error")
			},
			wantErr:    true,
			wantSubstr: []string{"panic in Bench.Fit", "fit failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			for _, s := range tt.wantSubstr {
				if !strings.Contains(err.Error(), s) {
					t.Errorf("error %q does not contain %q", err.Error(), s)
				}
			}
		})
	}
}

func TestSafeExecute(t *testing.T) {
	original := fmt.Errorf("function error")
	if err := SafeExecute("op", func() error { return original }); err != original {
		t.Fatalf("expected original error, got %v", err)
	}

	err := SafeExecute("op", func() error {
		var s []int
		_ = s[3]
		return nil
	})
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected *PanicError, got %T", err)
	}
	if panicErr.StackTrace == "" {
		t.Error("expected a stack trace")
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}
