package remote

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

type fakeLocator map[string]*core.WorkerInfo

func (f fakeLocator) LocateWorker(ctx context.Context, name string) (*core.WorkerInfo, error) {
	w, ok := f[name]
	if !ok {
		return nil, core.NewNotFoundError("Worker", name)
	}
	return w, nil
}

type fakeHosts struct {
	hostnames map[string]string
	users     map[string]string
}

func (f fakeHosts) Aliases() []string {
	out := make([]string, 0, len(f.hostnames))
	for alias := range f.hostnames {
		out = append(out, alias)
	}
	return out
}

func (f fakeHosts) HostName(alias string) string { return f.hostnames[alias] }
func (f fakeHosts) User(alias string) string     { return f.users[alias] }

type fakeResolver map[string][]string

func (f fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	addrs, ok := f[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

type fakeSession struct {
	results  map[string]ExecResult
	commands []string
	closed   bool
	runErr   error
}

func (s *fakeSession) Run(ctx context.Context, command string) (ExecResult, error) {
	s.commands = append(s.commands, command)
	if s.runErr != nil {
		return ExecResult{}, s.runErr
	}
	for prefix, r := range s.results {
		if strings.Contains(command, prefix) {
			return r, nil
		}
	}
	return ExecResult{}, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	dialed  []string
}

func (f *fakeDialer) Dial(ctx context.Context, alias string) (Session, error) {
	f.dialed = append(f.dialed, alias)
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type localCall struct {
	pid int
	sig syscall.Signal
}

func newTestDispatcher(hosts fakeHosts, dialer *fakeDialer, resolver fakeResolver, localErr error, calls *[]localCall) *Dispatcher {
	return NewDispatcher(hosts, dialer,
		WithResolver(resolver),
		WithTimeout(time.Second),
		WithLocalHost(
			func() (string, error) { return "monitor-host", nil },
			func(pid int, sig syscall.Signal) error {
				*calls = append(*calls, localCall{pid, sig})
				return localErr
			},
		),
	)
}

func defaultHosts() fakeHosts {
	return fakeHosts{
		hostnames: map[string]string{
			"build":    "10.0.0.7",
			"db":       "db.internal",
			"build-v6": "fd00::7",
		},
		users: map[string]string{"build": "deploy", "db": "ops"},
	}
}

func defaultResolver() fakeResolver {
	return fakeResolver{
		"worker-7.example.com": {"10.0.0.7"},
		"worker-9.example.com": {"10.0.0.9"},
		"db.internal":          {"10.0.0.20"},
	}
}

func TestTerminate_LocalHostSkipsSSH(t *testing.T) {
	var calls []localCall
	dialer := &fakeDialer{session: &fakeSession{}}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "monitor-host", PID: 321}}

	delivery, err := d.Terminate(context.Background(), locator, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivery.Via != ViaLocal {
		t.Errorf("via = %q, want %q", delivery.Via, ViaLocal)
	}
	if len(calls) != 1 || calls[0].pid != 321 || calls[0].sig != syscall.SIGINT {
		t.Errorf("local calls = %+v, want one SIGINT to 321", calls)
	}
	if len(dialer.dialed) != 0 {
		t.Errorf("dialed %v, want no ssh connection", dialer.dialed)
	}
}

func TestTerminate_LocalFailureIsCommandFailed(t *testing.T) {
	var calls []localCall
	d := newTestDispatcher(defaultHosts(), &fakeDialer{}, defaultResolver(), errors.New("os: process already finished"), &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "monitor-host", PID: 321}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeCommandFailed) {
		t.Fatalf("expected command_failed, got %v", err)
	}
}

func TestTerminate_UnknownWorker(t *testing.T) {
	var calls []localCall
	d := newTestDispatcher(defaultHosts(), &fakeDialer{}, defaultResolver(), nil, &calls)

	_, err := d.Terminate(context.Background(), fakeLocator{}, "ghost")
	if !core.HasCode(err, core.ErrCodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestTerminate_MissingHostname(t *testing.T) {
	var calls []localCall
	dialer := &fakeDialer{session: &fakeSession{}}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", PID: 321}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeHostUnreachable) {
		t.Fatalf("expected host_unreachable, got %v", err)
	}
	if len(calls) != 0 || len(dialer.dialed) != 0 {
		t.Errorf("no delivery should be attempted, got local=%v ssh=%v", calls, dialer.dialed)
	}
}

func TestTerminate_NoMatchingHost(t *testing.T) {
	var calls []localCall
	dialer := &fakeDialer{session: &fakeSession{}}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-9.example.com", PID: 55}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeNoMatchingHost) {
		t.Fatalf("expected no_matching_host, got %v", err)
	}
	if len(dialer.dialed) != 0 {
		t.Errorf("dialed %v, want no session attempts", dialer.dialed)
	}
}

func TestTerminate_UnresolvableWorkerHost(t *testing.T) {
	var calls []localCall
	dialer := &fakeDialer{session: &fakeSession{}}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "gone.example.com", PID: 55}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeHostUnreachable) {
		t.Fatalf("expected host_unreachable, got %v", err)
	}
}

func TestTerminate_MatchesByAddressNotName(t *testing.T) {
	var calls []localCall
	session := &fakeSession{results: map[string]ExecResult{
		"ps -o user=": {Stdout: "deploy\n"},
	}}
	dialer := &fakeDialer{session: session}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	delivery, err := d.Terminate(context.Background(), locator, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivery.Via != ViaSSH || delivery.Alias != "build" || delivery.Address != "10.0.0.7" {
		t.Errorf("delivery = %+v, want ssh via build at 10.0.0.7", delivery)
	}
	if delivery.Owner != "deploy" {
		t.Errorf("owner = %q, want deploy", delivery.Owner)
	}
	if len(dialer.dialed) != 1 || dialer.dialed[0] != "build" {
		t.Errorf("dialed = %v, want [build]", dialer.dialed)
	}
	want := []string{"LC_ALL=C ps -o user= -p 4242", "LC_ALL=C kill -2 4242"}
	if len(session.commands) != 2 || session.commands[0] != want[0] || session.commands[1] != want[1] {
		t.Errorf("commands = %q, want %q", session.commands, want)
	}
	if !session.closed {
		t.Error("session was not closed")
	}
}

func TestTerminate_ChecksEveryAlias(t *testing.T) {
	var calls []localCall
	hosts := fakeHosts{hostnames: map[string]string{
		"alpha": "10.0.0.1",
		"beta":  "10.0.0.2",
		"gamma": "worker-9.example.com",
	}}
	dialer := &fakeDialer{session: &fakeSession{}}
	d := newTestDispatcher(hosts, dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-9.example.com", PID: 1}}

	delivery, err := d.Terminate(context.Background(), locator, "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivery.Alias != "gamma" {
		t.Errorf("alias = %q, want gamma", delivery.Alias)
	}
}

func TestTerminate_ConnectFailureIsHostUnreachable(t *testing.T) {
	var calls []localCall
	dialer := &fakeDialer{err: errors.New("connection refused")}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeHostUnreachable) {
		t.Fatalf("expected host_unreachable, got %v", err)
	}
}

func TestTerminate_PermissionDenied(t *testing.T) {
	var calls []localCall
	session := &fakeSession{results: map[string]ExecResult{
		"ps -o user=": {Stdout: "root\n"},
		"kill -2":     {ExitStatus: 1, Stderr: "bash: line 1: kill: (4242) - Operation not permitted\n", Reason: ReasonPermissionDenied},
	}}
	dialer := &fakeDialer{session: session}
	d := newTestDispatcher(defaultHosts(), dialer, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	ojsErr, ok := core.AsOJSError(err)
	if !ok || ojsErr.Code != core.ErrCodeOwnershipDenied {
		t.Fatalf("expected ownership_denied, got %v", err)
	}
	if ojsErr.Details["owner"] != "root" {
		t.Errorf("owner = %v, want root", ojsErr.Details["owner"])
	}
	if ojsErr.Details["acting_user"] != "deploy" {
		t.Errorf("acting_user = %v, want deploy", ojsErr.Details["acting_user"])
	}
	if len(dialer.dialed) != 1 {
		t.Errorf("dialed %d times, want exactly 1", len(dialer.dialed))
	}
	kills := 0
	for _, c := range session.commands {
		if strings.Contains(c, "kill") {
			kills++
		}
	}
	if kills != 1 {
		t.Errorf("kill sent %d times, want 1", kills)
	}
}

func TestTerminate_KillFailureIsCommandFailed(t *testing.T) {
	var calls []localCall
	session := &fakeSession{results: map[string]ExecResult{
		"ps -o user=": {Stdout: "deploy\n"},
		"kill -2":     {ExitStatus: 1, Stderr: "kill: (4242) - No such process", Reason: ReasonFailed},
	}}
	d := newTestDispatcher(defaultHosts(), &fakeDialer{session: session}, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	ojsErr, ok := core.AsOJSError(err)
	if !ok || ojsErr.Code != core.ErrCodeCommandFailed {
		t.Fatalf("expected command_failed, got %v", err)
	}
	if !strings.Contains(ojsErr.Details["stderr"].(string), "No such process") {
		t.Errorf("stderr detail = %v", ojsErr.Details["stderr"])
	}
}

func TestTerminate_OwnerLookupFailure(t *testing.T) {
	var calls []localCall
	session := &fakeSession{results: map[string]ExecResult{
		"ps -o user=": {ExitStatus: 1, Reason: ReasonFailed},
	}}
	d := newTestDispatcher(defaultHosts(), &fakeDialer{session: session}, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeCommandFailed) {
		t.Fatalf("expected command_failed, got %v", err)
	}
	if len(session.commands) != 1 {
		t.Errorf("commands = %q, want only the owner lookup", session.commands)
	}
}

func TestTerminate_TimeoutDuringCommand(t *testing.T) {
	var calls []localCall
	session := &fakeSession{runErr: context.DeadlineExceeded}
	d := newTestDispatcher(defaultHosts(), &fakeDialer{session: session}, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	if !core.HasCode(err, core.ErrCodeCommandFailed) {
		t.Fatalf("expected command_failed, got %v", err)
	}
}

func TestTerminate_OwnerLookupPermissionDenied(t *testing.T) {
	var calls []localCall
	session := &fakeSession{results: map[string]ExecResult{
		"ps -o user=": {ExitStatus: 1, Stderr: "ps: Operation not permitted\n", Reason: ReasonPermissionDenied},
	}}
	d := newTestDispatcher(defaultHosts(), &fakeDialer{session: session}, defaultResolver(), nil, &calls)
	locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

	_, err := d.Terminate(context.Background(), locator, "w1")
	ojsErr, ok := core.AsOJSError(err)
	if !ok || ojsErr.Code != core.ErrCodeOwnershipDenied {
		t.Fatalf("expected ownership_denied, got %v", err)
	}
	if ojsErr.Details["owner"] != "unknown" || ojsErr.Details["acting_user"] != "deploy" {
		t.Errorf("details = %v", ojsErr.Details)
	}
	if len(session.commands) != 1 {
		t.Errorf("commands = %q, want no kill after a denied owner lookup", session.commands)
	}
}

// blockingResolver, blockingDialer and blockingSession hang until their
// context ends.
type blockingResolver struct{}

func (blockingResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type blockingDialer struct{}

func (blockingDialer) Dial(ctx context.Context, alias string) (Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type blockingSession struct{}

func (blockingSession) Run(ctx context.Context, command string) (ExecResult, error) {
	<-ctx.Done()
	return ExecResult{}, ctx.Err()
}

func (blockingSession) Close() error { return nil }

type sessionDialer struct{ session Session }

func (d sessionDialer) Dial(ctx context.Context, alias string) (Session, error) {
	return d.session, nil
}

func TestTerminate_TimeoutBoundsEveryStep(t *testing.T) {
	const timeout = 50 * time.Millisecond
	tests := []struct {
		name     string
		resolver Resolver
		dialer   Dialer
		wantCode string
	}{
		{"dns lookup", blockingResolver{}, &fakeDialer{session: &fakeSession{}}, core.ErrCodeHostUnreachable},
		{"ssh connect", defaultResolver(), blockingDialer{}, core.ErrCodeHostUnreachable},
		{"remote command", defaultResolver(), sessionDialer{blockingSession{}}, core.ErrCodeCommandFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(defaultHosts(), tt.dialer,
				WithResolver(tt.resolver),
				WithTimeout(timeout),
				WithLocalHost(
					func() (string, error) { return "monitor-host", nil },
					func(pid int, sig syscall.Signal) error { return nil },
				),
			)
			locator := fakeLocator{"w1": {Name: "w1", Hostname: "worker-7.example.com", PID: 4242}}

			began := time.Now()
			_, err := d.Terminate(context.Background(), locator, "w1")
			elapsed := time.Since(began)

			if !core.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if elapsed < timeout {
				t.Errorf("returned after %v, before the %v deadline", elapsed, timeout)
			}
			if elapsed > 5*time.Second {
				t.Errorf("returned after %v, deadline was %v", elapsed, timeout)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		exit   int
		stderr string
		want   Reason
	}{
		{"success", 0, "", ReasonNone},
		{"eperm", 1, "kill: (12) - Operation not permitted", ReasonPermissionDenied},
		{"esrch", 1, "kill: (12) - No such process", ReasonFailed},
		{"success ignores stderr", 0, "Operation not permitted", ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.exit, tt.stderr); got != tt.want {
				t.Errorf("Classify(%d, %q) = %v, want %v", tt.exit, tt.stderr, got, tt.want)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	if got := Outcome(nil); got != "delivered" {
		t.Errorf("Outcome(nil) = %q", got)
	}
	if got := Outcome(core.NewNoMatchingHostError("h", "1.2.3.4")); got != core.ErrCodeNoMatchingHost {
		t.Errorf("Outcome(no match) = %q", got)
	}
	if got := Outcome(errors.New("boom")); got != core.ErrCodeInternalError {
		t.Errorf("Outcome(plain) = %q", got)
	}
}
