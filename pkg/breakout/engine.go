// Package breakout is the DPB Orchestrator (C5): the single top-level
// breakOut transaction that sequences the Tree Store (pkg/yangmodel), Key
// Searcher, Diff Engine and Merge Engine (all pkg/tree) against a live
// Config DB and Asic DB into one state machine:
//
//	INIT -> DEL_PLAN -> DEL_VALIDATE -> ADD_PLAN -> ADD_VALIDATE ->
//	SHUTDOWN -> WRITE_DEL -> ASIC_WAIT -> WRITE_ADD -> DONE
//	any state -> FAILED(reason)
package breakout

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sonic-net/dpbreakout/pkg/settings"
	"github.com/sonic-net/dpbreakout/pkg/tree"
	"github.com/sonic-net/dpbreakout/pkg/util"
	"github.com/sonic-net/dpbreakout/pkg/yangmodel"
)

// State names one step of the breakout state machine.
type State string

const (
	StateInit        State = "INIT"
	StateDelPlan     State = "DEL_PLAN"
	StateDelValidate State = "DEL_VALIDATE"
	StateAddPlan     State = "ADD_PLAN"
	StateAddValidate State = "ADD_VALIDATE"
	StateShutdown    State = "SHUTDOWN"
	StateWriteDel    State = "WRITE_DEL"
	StateAsicWait    State = "ASIC_WAIT"
	StateWriteAdd    State = "WRITE_ADD"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// FailureReason is one of the error kinds of spec.md §7.
type FailureReason string

const (
	ReasonDependencies     FailureReason = "Dependencies"
	ReasonValidation       FailureReason = "Validation"
	ReasonSchemaCoverage   FailureReason = "SchemaCoverage"
	ReasonMergeShape       FailureReason = "MergeShape"
	ReasonDBIO             FailureReason = "DBIO"
	ReasonAsicNotConverged FailureReason = "AsicNotConverged"
)

// Request is one breakOut(delPorts, addPorts, portJson, force, loadDefaults)
// call.
type Request struct {
	DelPorts []string
	AddPorts []string

	// PortJSON holds the PORT-table row to write for each port in
	// AddPorts, keyed by port name (equivalent to the original's
	// portJson.PORT). A port absent from this map gets an empty row,
	// relying entirely on LoadDefaults to populate it.
	PortJSON map[string]tree.Node

	Force        bool
	LoadDefaults bool
}

// Result reports where a transaction ended up. State is always set;
// FailureReason and Dependencies are populated only when State is
// StateFailed.
type Result struct {
	State         State
	FailureReason FailureReason
	Dependencies  []string
}

// ConfigStore is the subset of pkg/dbclient.ConfigDBClient the engine
// needs; *dbclient.ConfigDBClient satisfies it directly. Declared here,
// at the consumer, so the engine can be driven against a fake in tests
// without a live Redis instance.
type ConfigStore interface {
	GetAll() (map[string]interface{}, error)
	Apply(payload map[string]interface{}) error
}

// AsicStore is the subset of pkg/dbclient.AsicDBClient the engine needs.
type AsicStore interface {
	Exists(key string) (bool, error)
	GetInterfaceOidMap() (nameToOid map[string]string, oidToName map[string]string, err error)
}

// Engine is the DPB Orchestrator. One Engine drives one transaction at a
// time against one switch; callers serialize concurrent BreakOut calls
// themselves (spec.md §5: no lock-free concurrent DPB against the same
// switch).
type Engine struct {
	ConfigDB ConfigStore
	AsicDB   AsicStore

	YangModelDir           string
	DefaultsFile           string
	AllowTablesWithOutYang bool
	MaxWaitSeconds         int
}

// NewEngine builds an Engine from live store clients and settings.
func NewEngine(configDB ConfigStore, asicDB AsicStore, s *settings.Settings) *Engine {
	return &Engine{
		ConfigDB:               configDB,
		AsicDB:                 asicDB,
		YangModelDir:           s.GetYangModelDir(),
		DefaultsFile:           s.GetDefaultsFile(),
		AllowTablesWithOutYang: s.GetAllowTablesWithOutYang(),
		MaxWaitSeconds:         s.GetMaxWaitSeconds(),
	}
}

// BreakOut runs one DPB transaction end to end. A failure before
// WRITE_DEL leaves the switch entirely untouched; a failure after leaves
// it in the intermediate post-delete state (spec.md §7) — the returned
// Result.State tells the caller which.
func (e *Engine) BreakOut(ctx context.Context, req Request) (*Result, error) {
	txID := fmt.Sprintf("dpb-%d", time.Now().UnixNano())
	log := util.WithTransaction(txID)
	log.WithFields(map[string]interface{}{
		"del_ports": req.DelPorts,
		"add_ports": req.AddPorts,
		"force":     req.Force,
	}).Info("breakout transaction starting")

	snapshot, err := e.ConfigDB.GetAll()
	if err != nil {
		return e.fail(log, ReasonDBIO, nil), util.NewDBIOError("configdb", "getall", err)
	}

	store, err := yangmodel.NewStore(e.YangModelDir, e.AllowTablesWithOutYang)
	if err != nil {
		return e.fail(log, ReasonSchemaCoverage, nil), err
	}
	if err := store.Load(snapshot, e.AllowTablesWithOutYang); err != nil {
		return e.fail(log, ReasonSchemaCoverage, nil), err
	}

	preImage := store.Get() // configIn: the pre-delete snapshot, never mutated again.

	// DEL_PLAN
	log.WithField("state", StateDelPlan).Debug("planning delete")
	var depXPaths []string
	for _, port := range req.DelPorts {
		depXPaths = append(depXPaths, store.FindDependencies(store.XPathOfPort(port))...)
	}
	if len(depXPaths) > 0 && !req.Force {
		log.WithField("dependencies", depXPaths).Info("delete blocked by live dependencies, no mutation performed")
		return e.fail(log, ReasonDependencies, depXPaths), util.NewHasDependenciesError(req.DelPorts, depXPaths)
	}
	for _, dep := range depXPaths {
		if err := store.Delete(dep); err != nil {
			return e.fail(log, ReasonDBIO, nil), err
		}
	}
	for _, port := range req.DelPorts {
		if err := store.Delete(store.XPathOfPort(port)); err != nil {
			return e.fail(log, ReasonDBIO, nil), err
		}
	}

	// DEL_VALIDATE
	log.WithField("state", StateDelValidate).Debug("validating post-delete tree")
	if err := store.Validate(); err != nil {
		return e.fail(log, ReasonValidation, nil), err
	}

	// ADD_PLAN
	log.WithField("state", StateAddPlan).Debug("planning add")
	midImage := store.Get() // rebaselined configIn, post-delete.
	candidate, err := e.planAdd(store, midImage, req)
	if err != nil {
		reason := ReasonMergeShape
		if _, ok := err.(*util.DBIOError); ok {
			reason = ReasonDBIO
		}
		return e.fail(log, reason, nil), err
	}

	// ADD_VALIDATE: reload forces a fresh schema-coverage check too.
	log.WithField("state", StateAddValidate).Debug("validating post-add tree")
	if err := store.Load(candidate, e.AllowTablesWithOutYang); err != nil {
		return e.fail(log, ReasonSchemaCoverage, nil), err
	}
	if err := store.Validate(); err != nil {
		return e.fail(log, ReasonValidation, nil), err
	}
	postAddImage := store.Get()

	// From here on, failures leave the switch in an intermediate state.

	// SHUTDOWN
	log.WithField("state", StateShutdown).Info("marking ports to delete admin-down")
	if err := e.shutdownPorts(req.DelPorts); err != nil {
		return e.fail(log, ReasonDBIO, nil), err
	}

	// The oid map must be captured before WRITE_DEL: once a port row is
	// gone, Config DB can no longer resolve it to an oid.
	nameToOid, _, err := e.AsicDB.GetInterfaceOidMap()
	if err != nil {
		return e.fail(log, ReasonDBIO, nil), err
	}

	// WRITE_DEL
	log.WithField("state", StateWriteDel).Debug("writing delete delta")
	if err := e.writeDelta(preImage, midImage); err != nil {
		return e.fail(log, ReasonDBIO, nil), err
	}

	// ASIC_WAIT
	log.WithField("state", StateAsicWait).Debug("waiting for asic to release deleted ports")
	if err := e.waitForRelease(ctx, log, req.DelPorts, nameToOid); err != nil {
		if asicErr, ok := err.(*util.AsicNotConvergedError); ok {
			log.WithField("severity", "critical").WithField("ports", asicErr.Ports).Error("asic did not release deleted ports in time")
			return e.fail(log, ReasonAsicNotConverged, nil), err
		}
		return e.fail(log, ReasonDBIO, nil), err
	}

	// WRITE_ADD
	log.WithField("state", StateWriteAdd).Debug("writing add delta")
	if err := e.writeDelta(midImage, postAddImage); err != nil {
		return e.fail(log, ReasonDBIO, nil), err
	}

	log.Info("breakout transaction completed")
	return &Result{State: StateDone}, nil
}

func (e *Engine) fail(log *logrus.Entry, reason FailureReason, deps []string) *Result {
	log.WithField("reason", reason).Warn("breakout transaction failed")
	return &Result{State: StateFailed, FailureReason: reason, Dependencies: deps}
}

func (e *Engine) writeDelta(pre, post tree.Node) error {
	diff := tree.SymmetricDiff(pre, post)
	payload := tree.Synthesize(diff, pre, post)
	if payload == nil {
		return nil
	}
	payloadMap, ok := tree.AsMap(payload)
	if !ok {
		return nil
	}
	return e.ConfigDB.Apply(payloadMap)
}

func (e *Engine) shutdownPorts(delPorts []string) error {
	if len(delPorts) == 0 {
		return nil
	}
	rows := make(map[string]interface{}, len(delPorts))
	for _, port := range delPorts {
		rows[port] = map[string]interface{}{"admin_status": "down"}
	}
	return e.ConfigDB.Apply(map[string]interface{}{"PORT": rows})
}
