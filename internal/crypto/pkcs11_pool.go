//go:build cgo

package crypto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"
)

// sessionPool hands out PKCS#11 sessions for one (module, slot) pair.
// Login is per token, so it happens once on the first session opened.
type sessionPool struct {
	mu       sync.Mutex
	ctx      *pkcs11.Ctx
	module   string
	slotID   uint
	pin      string
	idle     []pkcs11.SessionHandle
	busy     map[pkcs11.SessionHandle]struct{}
	loggedIn bool
	closed   bool
}

var (
	pools   = make(map[string]*sessionPool)
	poolsMu sync.Mutex
)

func poolKey(modulePath string, slotID uint) string {
	return fmt.Sprintf("%s:%d", modulePath, slotID)
}

// loadModule loads and initializes a PKCS#11 module. An already
// initialized module is not an error.
func loadModule(modulePath string) (*pkcs11.Ctx, error) {
	ctx := pkcs11.New(modulePath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load PKCS#11 module: %s", modulePath)
	}
	if err := ctx.Initialize(); err != nil {
		var p11err pkcs11.Error
		if !errors.As(err, &p11err) || p11err != pkcs11.CKR_CRYPTOKI_ALREADY_INITIALIZED {
			ctx.Destroy()
			return nil, fmt.Errorf("failed to initialize PKCS#11 module: %w", err)
		}
	}
	return ctx, nil
}

// getSessionPool returns the shared pool for a module and slot, creating
// it on first use.
func getSessionPool(modulePath string, slotID uint, pin string) (*sessionPool, error) {
	poolsMu.Lock()
	defer poolsMu.Unlock()

	key := poolKey(modulePath, slotID)
	if pool, ok := pools[key]; ok {
		pool.mu.Lock()
		closed := pool.closed
		pool.mu.Unlock()
		if !closed {
			return pool, nil
		}
		delete(pools, key)
	}

	ctx, err := loadModule(modulePath)
	if err != nil {
		return nil, err
	}

	pool := &sessionPool{
		ctx:    ctx,
		module: modulePath,
		slotID: slotID,
		pin:    pin,
		busy:   make(map[pkcs11.SessionHandle]struct{}),
	}
	pools[key] = pool
	return pool, nil
}

// acquire reserves a session. The returned release func must be called
// when the caller is done with it.
func (p *sessionPool) acquire() (pkcs11.SessionHandle, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, nil, fmt.Errorf("session pool is closed")
	}

	var session pkcs11.SessionHandle
	if n := len(p.idle); n > 0 {
		session = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		var err error
		session, err = p.ctx.OpenSession(p.slotID, pkcs11.CKF_SERIAL_SESSION)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to open session: %w", err)
		}

		if p.pin != "" && !p.loggedIn {
			if err := p.ctx.Login(session, pkcs11.CKU_USER, p.pin); err != nil {
				var p11err pkcs11.Error
				if !errors.As(err, &p11err) || p11err != pkcs11.CKR_USER_ALREADY_LOGGED_IN {
					_ = p.ctx.CloseSession(session)
					return 0, nil, fmt.Errorf("failed to login: %w", err)
				}
			}
			p.loggedIn = true
		}
	}

	p.busy[session] = struct{}{}

	release := func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		delete(p.busy, session)
		if p.closed {
			_ = p.ctx.CloseSession(session)
			return
		}
		p.idle = append(p.idle, session)
	}

	return session, release, nil
}

// close logs out, closes every session and finalizes the module.
func (p *sessionPool) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var errs []error

	if p.loggedIn && len(p.idle) > 0 {
		if err := p.ctx.Logout(p.idle[0]); err != nil {
			var p11err pkcs11.Error
			if !errors.As(err, &p11err) || p11err != pkcs11.CKR_USER_NOT_LOGGED_IN {
				errs = append(errs, fmt.Errorf("logout: %w", err))
			}
		}
	}

	for _, session := range p.idle {
		if err := p.ctx.CloseSession(session); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
	}
	p.idle = nil

	if len(p.busy) == 0 {
		if err := p.ctx.Finalize(); err != nil {
			var p11err pkcs11.Error
			if !errors.As(err, &p11err) || p11err != pkcs11.CKR_CRYPTOKI_NOT_INITIALIZED {
				errs = append(errs, fmt.Errorf("finalize: %w", err))
			}
		}
		p.ctx.Destroy()
	}
	p.mu.Unlock()

	// poolsMu is taken before pool.mu elsewhere, so never hold both here.
	poolsMu.Lock()
	if key := poolKey(p.module, p.slotID); pools[key] == p {
		delete(pools, key)
	}
	poolsMu.Unlock()

	return errors.Join(errs...)
}

// CloseAllPools closes every PKCS#11 session pool. Call it at exit.
func CloseAllPools() {
	poolsMu.Lock()
	all := make([]*sessionPool, 0, len(pools))
	for _, pool := range pools {
		all = append(all, pool)
	}
	poolsMu.Unlock()

	for _, pool := range all {
		_ = pool.close()
	}
}
