package dispatch

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	rt "github.com/rustle-deploy/rustle-deploy/internal/runtime"
	rerrors "github.com/rustle-deploy/rustle-deploy/pkg/errors"
)

const waitForPollInterval = 200 * time.Millisecond

// waitForModule implements the wait_for module (§4.9): required `port`
// (numeric), polling net.Dial until the port accepts a connection or the
// task's own timeout (enforced by the scheduler's cancellation token)
// expires. No third-party TCP-polling library appears anywhere in the
// example corpus, so this stays on net.Dial + a plain poll loop.
type waitForModule struct{}

// NewWaitForModule returns the wait_for module.
func NewWaitForModule() Module { return &waitForModule{} }

func (m *waitForModule) Name() string                 { return "wait_for" }
func (m *waitForModule) SupportedPlatforms() []string { return nil }

func (m *waitForModule) Normalize(args map[string]any) (map[string]any, error) {
	return cloneArgs(args), nil
}

func (m *waitForModule) Validate(args map[string]any) error {
	port, ok := args["port"]
	if !ok {
		return rerrors.NewValidationError("port", "wait_for requires port", nil)
	}
	if _, err := portNumber(port); err != nil {
		return rerrors.NewValidationError("port", "port must be numeric", err)
	}
	return nil
}

func (m *waitForModule) Check(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	port, _ := portNumber(args["port"])
	host := optionalString(args, "host", "127.0.0.1")
	return rt.ModuleResult{Changed: false, Message: fmt.Sprintf("would wait for %s:%d", host, port)}, nil
}

func (m *waitForModule) Execute(ctx context.Context, args map[string]any) (rt.ModuleResult, error) {
	port, err := portNumber(args["port"])
	if err != nil {
		return rt.ModuleResult{}, rerrors.NewValidationError("port", "port must be numeric", err)
	}
	host := optionalString(args, "host", "127.0.0.1")
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ticker := time.NewTicker(waitForPollInterval)
	defer ticker.Stop()

	for {
		conn, dialErr := net.DialTimeout("tcp", addr, waitForPollInterval)
		if dialErr == nil {
			conn.Close()
			return rt.ModuleResult{Changed: false, Message: fmt.Sprintf("%s is accepting connections", addr)}, nil
		}

		select {
		case <-ctx.Done():
			return rt.ModuleResult{Failed: true, Message: fmt.Sprintf("timed out waiting for %s", addr)}, nil
		case <-ticker.C:
		}
	}
}

func portNumber(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case float64:
		return int(p), nil
	case string:
		return strconv.Atoi(p)
	default:
		return 0, fmt.Errorf("unsupported port type %T", v)
	}
}
