package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/godbus/dbus/v5"
)

// rawConn is the subset of *dbus.Conn used by Session.
type rawConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

var newSessionConn = func(address string) (rawConn, error) {
	if strings.TrimSpace(address) == "" {
		return dbus.ConnectSessionBus()
	}
	return dbus.Connect(address)
}

// Session is a Conn backed by a godbus connection. Incoming signals are
// fanned out to subscribers from a single dispatch goroutine.
type Session struct {
	conn    rawConn
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	signals chan *dbus.Signal
	wg      sync.WaitGroup

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
	closed bool
}

type subscription struct {
	id      uint64
	session *Session
	sender  string
	path    dbus.ObjectPath
	iface   string
	member  string
	fn      func(*dbus.Signal)
	once    sync.Once
}

// Open connects to the bus at address (the session bus when empty). timeout
// bounds every method call; zero leaves calls bounded only by their context.
func Open(address string, timeout time.Duration) (*Session, error) {
	conn, err := newSessionConn(address)
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return newSession(conn, timeout), nil
}

func newSession(conn rawConn, timeout time.Duration) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:    conn,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan *dbus.Signal, 64),
		subs:    make(map[uint64]*subscription),
	}
	conn.Signal(s.signals)
	s.wg.Add(1)
	go s.dispatch()
	return s
}

// Call implements Conn.
func (s *Session) Call(ctx context.Context, dest string, path dbus.ObjectPath, iface, method string, args []interface{}, out ...interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	full := iface + "." + method
	call := s.conn.Object(dest, path).CallWithContext(ctx, full, 0, args...)
	events.Bus.Call(dest, string(path), full, call.Err)
	if call.Err != nil {
		return fmt.Errorf("%s on %s%s: %w", full, dest, path, call.Err)
	}
	if len(out) == 0 {
		return nil
	}
	if err := call.Store(out...); err != nil {
		return fmt.Errorf("decode %s reply: %w", full, err)
	}
	return nil
}

// Subscribe implements Conn.
func (s *Session) Subscribe(dest string, path dbus.ObjectPath, iface, member string, fn func(*dbus.Signal)) (Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s.%s: nil handler", iface, member)
	}
	sub := &subscription{
		session: s,
		sender:  dest,
		path:    path,
		iface:   iface,
		member:  member,
		fn:      fn,
	}
	if err := s.conn.AddMatchSignal(sub.matchOptions()...); err != nil {
		return nil, fmt.Errorf("add match %s.%s on %s: %w", iface, member, path, err)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = s.conn.RemoveMatchSignal(sub.matchOptions()...)
		return nil, fmt.Errorf("subscribe %s.%s: session closed", iface, member)
	}
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	s.mu.Unlock()
	events.Bus.Subscribe(string(path), iface, member)
	return sub, nil
}

// Close drops every subscription and closes the underlying connection.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subs = make(map[uint64]*subscription)
	s.mu.Unlock()

	s.cancel()
	s.conn.RemoveSignal(s.signals)
	err := s.conn.Close()
	s.wg.Wait()
	return err
}

func (s *Session) dispatch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			s.deliver(sig)
		}
	}
}

func (s *Session) deliver(sig *dbus.Signal) {
	if sig == nil {
		return
	}
	s.mu.Lock()
	targets := make([]*subscription, 0, 2)
	for _, sub := range s.subs {
		if sub.matches(sig) {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		events.Bus.Dropped(string(sig.Path), sig.Name)
		return
	}
	for _, sub := range targets {
		sub.invoke(sig)
	}
}

func (s *Session) remove(sub *subscription) {
	s.mu.Lock()
	_, live := s.subs[sub.id]
	delete(s.subs, sub.id)
	closed := s.closed
	s.mu.Unlock()
	if !live || closed {
		return
	}
	if err := s.conn.RemoveMatchSignal(sub.matchOptions()...); err != nil {
		logging.Error(fmt.Errorf("remove match %s.%s on %s: %w", sub.iface, sub.member, sub.path, err))
	}
	events.Bus.Unsubscribe(string(sub.path), sub.iface, sub.member)
}

func (sub *subscription) Cancel() {
	sub.once.Do(func() {
		sub.session.remove(sub)
	})
}

func (sub *subscription) matchOptions() []dbus.MatchOption {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(sub.path),
		dbus.WithMatchInterface(sub.iface),
		dbus.WithMatchMember(sub.member),
	}
	if sub.sender != "" {
		opts = append(opts, dbus.WithMatchSender(sub.sender))
	}
	return opts
}

func (sub *subscription) matches(sig *dbus.Signal) bool {
	if sig.Path != sub.path || sig.Name != sub.iface+"."+sub.member {
		return false
	}
	// Well-known names never appear as a signal sender; only unique names
	// can be compared.
	if strings.HasPrefix(sub.sender, ":") && sig.Sender != sub.sender {
		return false
	}
	return true
}

func (sub *subscription) invoke(sig *dbus.Signal) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(fmt.Errorf("signal handler %s.%s panicked: %v", sub.iface, sub.member, r))
		}
	}()
	sub.fn(sig)
}
