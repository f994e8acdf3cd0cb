package sensei

import (
	"context"
	"errors"
	"time"
)

// Close shuts the node down: loaders stop, indexes write their final
// snapshots, then the journal and the store lock are released.
//
// Close is safe to call more than once.
func (n *Node) Close(ctx context.Context) error {
	if n == nil {
		return nil
	}
	start := time.Now()
	err := n.manager.Shutdown(ctx)
	if rerr := n.release(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	err = translateError(err)
	n.log.LogLifecycle(ctx, "shutdown", time.Since(start), err)
	return err
}

// release closes what Open acquired. Only the first call does work.
func (n *Node) release() error {
	n.releaseOnce.Do(func() {
		var errs []error
		if n.journal != nil {
			if err := n.journal.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if n.unlock != nil {
			if err := n.unlock(); err != nil {
				errs = append(errs, err)
			}
		}
		n.releaseErr = errors.Join(errs...)
	})
	return n.releaseErr
}
