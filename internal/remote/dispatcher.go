// Package remote terminates workers by process id, either on this machine or
// over SSH on the machine the worker reported as its host.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// WorkerLocator resolves a worker name to its last recorded host and pid.
type WorkerLocator interface {
	LocateWorker(ctx context.Context, name string) (*core.WorkerInfo, error)
}

// HostConfig is the configured set of SSH host aliases.
type HostConfig interface {
	Aliases() []string
	// HostName is the address the alias connects to.
	HostName(alias string) string
	// User is the login the alias connects as.
	User(alias string) string
}

// Dialer opens SSH sessions to configured aliases.
type Dialer interface {
	Dial(ctx context.Context, alias string) (Session, error)
}

// Session runs commands on a connected host.
type Session interface {
	Run(ctx context.Context, command string) (ExecResult, error)
	Close() error
}

// Reason classifies a remote command result.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonPermissionDenied
	ReasonFailed
)

// ExecResult is the outcome of a command that ran to completion.
type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitStatus int
	Reason     Reason
}

// Classify derives Reason from the exit status and the C-locale EPERM text.
// Commands are run with LC_ALL=C so the message is not translated.
func Classify(exitStatus int, stderr string) Reason {
	switch {
	case exitStatus == 0:
		return ReasonNone
	case strings.Contains(stderr, "Operation not permitted"):
		return ReasonPermissionDenied
	default:
		return ReasonFailed
	}
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Via values of Delivery.
const (
	ViaLocal = "local"
	ViaSSH   = "ssh"
)

// Delivery describes a signal that reached its worker process.
type Delivery struct {
	Worker   string `json:"worker"`
	Hostname string `json:"hostname"`
	PID      int    `json:"pid"`
	Via      string `json:"via"`
	Alias    string `json:"alias,omitempty"`
	Address  string `json:"address,omitempty"`
	Owner    string `json:"owner,omitempty"`
}

// Dispatcher delivers termination signals to workers.
type Dispatcher struct {
	hosts    HostConfig
	dialer   Dialer
	resolver Resolver
	signal   syscall.Signal
	timeout  time.Duration

	localHostname func() (string, error)
	signalLocal   func(pid int, sig syscall.Signal) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResolver overrides DNS resolution.
func WithResolver(r Resolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithSignal sets the signal delivered to workers. Defaults to SIGINT, which
// asks the worker for a warm shutdown.
func WithSignal(sig syscall.Signal) Option {
	return func(d *Dispatcher) { d.signal = sig }
}

// WithTimeout bounds each termination, including DNS, SSH connect and remote
// commands.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLocalHost overrides how the local hostname is read and how local
// processes are signalled.
func WithLocalHost(hostname func() (string, error), signal func(pid int, sig syscall.Signal) error) Option {
	return func(d *Dispatcher) {
		d.localHostname = hostname
		d.signalLocal = signal
	}
}

// NewDispatcher creates a Dispatcher over the given SSH configuration.
func NewDispatcher(hosts HostConfig, dialer Dialer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		hosts:         hosts,
		dialer:        dialer,
		resolver:      net.DefaultResolver,
		signal:        syscall.SIGINT,
		timeout:       10 * time.Second,
		localHostname: os.Hostname,
		signalLocal:   signalProcess,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func signalProcess(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}

// Terminate signals the named worker's process. Failures are *core.OJSError
// values with one of the codes not_found, host_unreachable, no_matching_host,
// ownership_denied or command_failed. Nothing is retried.
func (d *Dispatcher) Terminate(ctx context.Context, locator WorkerLocator, worker string) (*Delivery, error) {
	w, err := locator.LocateWorker(ctx, worker)
	if err != nil {
		return nil, err
	}
	if w.Hostname == "" {
		return nil, core.NewHostUnreachableError("unknown", fmt.Sprintf("worker %s has no recorded hostname", worker))
	}
	if w.PID <= 0 {
		return nil, core.NewCommandFailedError(w.Hostname, d.killCommand(w.PID), "", "worker has no recorded process id", -1)
	}

	delivery := &Delivery{Worker: worker, Hostname: w.Hostname, PID: w.PID}

	local, err := d.localHostname()
	if err == nil && strings.EqualFold(local, w.Hostname) {
		delivery.Via = ViaLocal
		if err := d.signalLocal(w.PID, d.signal); err != nil {
			return nil, core.NewCommandFailedError(w.Hostname, d.killCommand(w.PID), "", err.Error(), -1)
		}
		return delivery, nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	delivery.Via = ViaSSH
	alias, address, err := d.discover(ctx, w.Hostname)
	if err != nil {
		return nil, err
	}
	delivery.Alias = alias
	delivery.Address = address

	owner, err := d.deliverRemote(ctx, alias, address, w.PID)
	if err != nil {
		return nil, err
	}
	delivery.Owner = owner
	return delivery, nil
}

// discover finds the SSH alias whose configured address resolves to one of
// the worker host's addresses. Every alias is checked because several may
// point at the same machine under different names.
func (d *Dispatcher) discover(ctx context.Context, hostname string) (string, string, error) {
	wanted, err := d.lookup(ctx, hostname)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", core.NewHostUnreachableError(hostname, ctx.Err().Error())
		}
		return "", "", core.NewHostUnreachableError(hostname, fmt.Sprintf("resolving address: %v", err))
	}
	if len(wanted) == 0 {
		return "", "", core.NewHostUnreachableError(hostname, "hostname resolved to no addresses")
	}
	want := make(map[string]struct{}, len(wanted))
	for _, a := range wanted {
		want[a] = struct{}{}
	}

	aliases := append([]string(nil), d.hosts.Aliases()...)
	sort.Strings(aliases)
	for _, alias := range aliases {
		configured := d.hosts.HostName(alias)
		addrs, err := d.lookup(ctx, configured)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", core.NewHostUnreachableError(hostname, ctx.Err().Error())
			}
			slog.Debug("skipping unresolvable ssh alias", "alias", alias, "hostname", configured, "error", err)
			continue
		}
		for _, a := range addrs {
			if _, ok := want[a]; ok {
				return alias, a, nil
			}
		}
	}
	return "", "", core.NewNoMatchingHostError(hostname, strings.Join(wanted, ","))
}

func (d *Dispatcher) lookup(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}
	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil {
			a = ip.String()
		}
		out = append(out, a)
	}
	return out, nil
}

// deliverRemote checks who owns pid on the alias' host and signals it.
// Returns the process owner.
func (d *Dispatcher) deliverRemote(ctx context.Context, alias, address string, pid int) (string, error) {
	session, err := d.dialer.Dial(ctx, alias)
	if err != nil {
		return "", core.NewHostUnreachableError(alias, err.Error())
	}
	defer session.Close()

	psCmd := ownerCommand(pid)
	ps, err := session.Run(ctx, psCmd)
	if err != nil {
		return "", runError(alias, psCmd, err)
	}
	owner := strings.TrimSpace(ps.Stdout)
	switch ps.Reason {
	case ReasonNone:
	case ReasonPermissionDenied:
		if owner == "" {
			owner = "unknown"
		}
		return owner, core.NewOwnershipDeniedError(address, pid, owner, d.hosts.User(alias))
	default:
		return "", core.NewCommandFailedError(alias, psCmd, ps.Stdout, ps.Stderr, ps.ExitStatus)
	}

	killCmd := d.killCommand(pid)
	kill, err := session.Run(ctx, killCmd)
	if err != nil {
		return owner, runError(alias, killCmd, err)
	}
	switch kill.Reason {
	case ReasonNone:
		return owner, nil
	case ReasonPermissionDenied:
		return owner, core.NewOwnershipDeniedError(address, pid, owner, d.hosts.User(alias))
	default:
		return owner, core.NewCommandFailedError(alias, killCmd, kill.Stdout, kill.Stderr, kill.ExitStatus)
	}
}

// runError maps a transport failure while running a command. A command that
// could not finish before the deadline is reported as failed, not retried.
func runError(host, command string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewCommandFailedError(host, command, "", err.Error(), -1)
	}
	return core.NewHostUnreachableError(host, err.Error())
}

func ownerCommand(pid int) string {
	return "LC_ALL=C ps -o user= -p " + strconv.Itoa(pid)
}

func (d *Dispatcher) killCommand(pid int) string {
	return fmt.Sprintf("LC_ALL=C kill -%d %d", int(d.signal), pid)
}

// Outcome names the terminal state of a termination attempt.
func Outcome(err error) string {
	if err == nil {
		return "delivered"
	}
	if ojsErr, ok := core.AsOJSError(err); ok {
		return ojsErr.Code
	}
	return core.ErrCodeInternalError
}
