package breakout

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sonic-net/dpbreakout/pkg/dbclient"
	"github.com/sonic-net/dpbreakout/pkg/util"
)

const asicPollInterval = time.Second

// waitForRelease polls Asic DB for up to MaxWaitSeconds: a port is
// released once its ASIC_STATE:SAI_OBJECT_TYPE_PORT:oid:0x<oid> key is
// absent. nameToOid must have been captured before the delete was written
// to Config DB, since the name->oid lookup stops resolving once the row
// is gone.
func (e *Engine) waitForRelease(ctx context.Context, log *logrus.Entry, delPorts []string, nameToOid map[string]string) error {
	maxWait := e.MaxWaitSeconds
	if maxWait <= 0 {
		maxWait = 60
	}

	pending := make(map[string]string, len(delPorts))
	for _, port := range delPorts {
		if oid, ok := nameToOid[port]; ok {
			pending[port] = oid
		}
	}

	deadline := time.Now().Add(time.Duration(maxWait) * time.Second)
	for {
		for port, oid := range pending {
			exists, err := e.AsicDB.Exists(dbclient.AsicPortKey(oid))
			if err != nil {
				return err
			}
			if !exists {
				delete(pending, port)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			stalled := make([]string, 0, len(pending))
			for port := range pending {
				stalled = append(stalled, port)
			}
			return util.NewAsicNotConvergedError(stalled, maxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(asicPollInterval):
		}
	}
}
