package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontext/mcp-go/mcp"
)

func TestTable_RegisterResolveWait(t *testing.T) {
	t.Parallel()

	tbl := New()
	awaiter := tbl.Register("1")

	want := &mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: float64(1)}
	if !tbl.Resolve("1", want) {
		t.Fatal("Resolve() = false, want true")
	}

	got, err := awaiter.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got != want {
		t.Errorf("Wait() = %v, want %v", got, want)
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
}

func TestTable_ResolveOrphanReturnsFalse(t *testing.T) {
	t.Parallel()

	tbl := New()
	if tbl.Resolve("missing", &mcp.Response{}) {
		t.Error("Resolve() on unregistered id = true, want false")
	}
}

func TestTable_CancelWakesAwaiter(t *testing.T) {
	t.Parallel()

	tbl := New()
	awaiter := tbl.Register("7")

	wantErr := errors.New("deadline exceeded")
	tbl.Cancel("7", wantErr)

	_, err := awaiter.Wait(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Wait() error = %v, want %v", err, wantErr)
	}
}

func TestTable_CancelAllWakesEveryAwaiter(t *testing.T) {
	t.Parallel()

	tbl := New()
	a1 := tbl.Register("1")
	a2 := tbl.Register("2")

	tbl.CancelAll(mcp.ErrShuttingDown)

	for _, a := range []*Awaiter{a1, a2} {
		if _, err := a.Wait(context.Background()); !errors.Is(err, mcp.ErrShuttingDown) {
			t.Errorf("Wait() error = %v, want %v", err, mcp.ErrShuttingDown)
		}
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tbl.Len())
	}
}

func TestTable_WaitRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	tbl := New()
	awaiter := tbl.Register("1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := awaiter.Wait(ctx); err == nil {
		t.Fatal("Wait() error = nil, want context deadline error")
	}
	if tbl.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after context cancellation", tbl.Len())
	}
}

func TestTable_NumericAndStringIDsResolveIdentically(t *testing.T) {
	t.Parallel()

	tbl := New()
	awaiter := tbl.Register(mcp.StringifyID(float64(42)))

	if !tbl.Resolve(mcp.StringifyID(float64(42)), &mcp.Response{ID: float64(42)}) {
		t.Fatal("Resolve() by re-stringified numeric id = false, want true")
	}
	if _, err := awaiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
