package vm

import "testing"

func TestResultExitCode(t *testing.T) {
	tests := []struct {
		result Result
		want   int
	}{
		{ResultOK, 0},
		{ResultCompileError, 65},
		{ResultRuntimeError, 70},
	}
	for _, tt := range tests {
		if got := tt.result.ExitCode(); got != tt.want {
			t.Errorf("%v.ExitCode() = %d, want %d", tt.result, got, tt.want)
		}
	}
}

func TestResultString(t *testing.T) {
	if got := ResultCompileError.String(); got != "compile error" {
		t.Errorf("String() = %q, want %q", got, "compile error")
	}
}
