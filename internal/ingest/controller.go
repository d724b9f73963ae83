package ingest

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bricker/vivial-sub003/internal/archive"
	"github.com/bricker/vivial-sub003/internal/control"
	verrors "github.com/bricker/vivial-sub003/internal/errors"
	"github.com/bricker/vivial-sub003/internal/record"
	"github.com/bricker/vivial-sub003/internal/redact"
	"github.com/bricker/vivial-sub003/internal/warehouse"
	"github.com/bricker/vivial-sub003/pkg/types"
)

const (
	// maxBatchTriggers caps the distinct view triggers honored from a
	// single batch; a batch fanning out wider gets its view sync skipped
	// entirely.
	maxBatchTriggers = 50

	// maxTenantViews caps the virtual events registered per tenant; once
	// reached, no further views are created for that tenant.
	maxTenantViews = 1000

	// viewSyncConcurrency bounds the parallel view syncs per insert call.
	viewSyncConcurrency = 4
)

// Controller is the per-tenant, per-atom-kind table handle. It carries no
// mutable state across calls: every Insert is self-contained, so concurrent
// and multi-process invocation is safe without in-process locking.
type Controller struct {
	teamID    string
	datasetID string
	spec      types.TableSpec
	decode    record.Decoder

	wh        warehouse.Client
	ctrl      control.Store
	redactor  redact.Redactor
	archiver  *archive.Archiver
	decrypter record.Decrypter

	// strictSchema re-raises warehouse-rejected schema updates instead of
	// swallowing them; enabled outside production.
	strictSchema bool
}

// Options carries the collaborators shared by every controller for a tenant.
type Options struct {
	Warehouse    warehouse.Client
	Control      control.Store
	Redactor     redact.Redactor
	Archiver     *archive.Archiver
	Decrypter    record.Decrypter
	StrictSchema bool
}

// NewController creates a controller for one (tenant, atom kind) pair.
func NewController(teamID string, spec types.TableSpec, decode record.Decoder, opts Options) *Controller {
	return &Controller{
		teamID:       teamID,
		datasetID:    DatasetID(teamID),
		spec:         spec,
		decode:       decode,
		wh:           opts.Warehouse,
		ctrl:         opts.Control,
		redactor:     opts.Redactor,
		archiver:     opts.Archiver,
		decrypter:    opts.Decrypter,
		strictSchema: opts.StrictSchema,
	}
}

// NewBrowserEventController creates the controller for browser atoms.
func NewBrowserEventController(teamID string, opts Options) *Controller {
	return NewController(teamID, record.BrowserEventsTable(), record.BrowserEventFromPayload, opts)
}

// NewDatabaseEventController creates the controller for database atoms.
func NewDatabaseEventController(teamID string, opts Options) *Controller {
	return NewController(teamID, record.DatabaseEventsTable(), record.DatabaseEventFromPayload, opts)
}

// NewHTTPServerEventController creates the controller for HTTP-server atoms.
func NewHTTPServerEventController(teamID string, opts Options) *Controller {
	return NewController(teamID, record.HTTPServerEventsTable(), record.HTTPServerEventFromPayload, opts)
}

// NewAPIUsageEventController creates the controller for API-usage atoms.
func NewAPIUsageEventController(teamID string, opts Options) *Controller {
	return NewController(teamID, record.APIUsageEventsTable(), record.APIUsageEventFromPayload, opts)
}

// TableID returns the atom table id this controller writes to.
func (c *Controller) TableID() string { return c.spec.TableID }

// DatasetID returns the tenant dataset this controller writes to.
func (c *Controller) DatasetID() string { return c.datasetID }

// Insert ingests a batch of raw event payloads: decode, redact, reconcile
// the table schema, append rows, and synchronize the views the batch
// implies. Insert is best-effort throughout; the only error it returns is a
// strict-mode schema rejection. Everything else is logged and absorbed so
// the producer can always acknowledge receipt.
func (c *Controller) Insert(ctx context.Context, payloads []map[string]interface{}) error {
	if len(payloads) == 0 {
		return nil
	}

	// Malformed events are skipped individually; the batch proceeds.
	atoms := make([]record.Atom, 0, len(payloads))
	for i, payload := range payloads {
		atom, err := c.decode(payload, c.decrypter)
		if err != nil {
			log.Printf("[WARN] ingest: skipping event %d of %s batch for team %s: %v",
				i, c.spec.TableID, c.teamID, err)
			continue
		}
		atoms = append(atoms, atom)
	}
	if len(atoms) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, 0, len(atoms))
	for _, atom := range atoms {
		rows = append(rows, atom.Row())
	}

	redact.Rows(ctx, c.redactor, c.spec.Schema, rows)

	// The archive copy is taken after redaction: redactable fields must not
	// reach durable blob storage un-scrubbed.
	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, c.teamID, c.spec.TableID, rows); err != nil {
			log.Printf("[WARN] ingest: archive of %s batch for team %s failed: %v",
				c.spec.TableID, c.teamID, err)
		}
	}

	_, err := warehouse.GetAndSyncOrCreateTable(ctx, c.wh, c.datasetID, c.spec, c.strictSchema)
	if err != nil {
		if verrors.GetCode(err) == verrors.CodeSchemaUpdateRejected {
			return err
		}
		log.Printf("[WARN] ingest: failed to reconcile table %s for team %s: %v",
			c.spec.TableID, c.teamID, err)
		return nil
	}

	rowErrs, err := c.wh.AppendRows(ctx, c.datasetID, c.spec.TableID, rows)
	if err != nil {
		log.Printf("[WARN] ingest: append to %s for team %s failed: %v", c.spec.TableID, c.teamID, err)
		return nil
	}
	for _, re := range rowErrs {
		log.Printf("[WARN] ingest: row %d of %s batch for team %s rejected: %v",
			re.Index, c.spec.TableID, c.teamID, re.Err)
	}

	c.syncViews(ctx, atoms)
	return nil
}

// syncViews derives the distinct views implied by the batch and synchronizes
// each one, subject to the per-batch and per-tenant safety bounds.
func (c *Controller) syncViews(ctx context.Context, atoms []record.Atom) {
	// Dedup within the batch: repeated triggers must not cause repeated
	// sync attempts.
	distinct := make(map[string]types.ViewSpec)
	for _, atom := range atoms {
		for _, view := range atom.ViewSpecs(c.datasetID, c.spec) {
			distinct[view.ViewID] = view
		}
	}
	if len(distinct) == 0 {
		return
	}

	if len(distinct) > maxBatchTriggers {
		log.Printf("[WARN] ingest: batch for team %s implies %d distinct views (limit %d), skipping view sync",
			c.teamID, len(distinct), maxBatchTriggers)
		return
	}

	// Cheap pre-check; the guarded insert in syncView enforces the ceiling
	// per trigger.
	count, err := c.ctrl.Count(ctx, c.teamID)
	if err != nil {
		log.Printf("[WARN] ingest: failed to count virtual events for team %s, skipping view sync: %v",
			c.teamID, err)
		return
	}
	if count >= maxTenantViews {
		log.Printf("[WARN] ingest: team %s has %d virtual events (limit %d), skipping view creation",
			c.teamID, count, maxTenantViews)
		return
	}

	// Distinct views are independent; sync them with bounded parallelism.
	// The wait is deferred so a failed Acquire (context cancelled) still
	// drains the in-flight syncs before returning.
	sem := semaphore.NewWeighted(viewSyncConcurrency)
	var wg sync.WaitGroup
	defer wg.Wait()
	for _, view := range distinct {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		wg.Add(1)
		go func(view types.ViewSpec) {
			defer wg.Done()
			defer sem.Release(1)
			c.syncView(ctx, view)
		}(view)
	}
}

// syncView materializes one view at most logically once per tenant. The
// control-table uniqueness constraint is the only synchronization primitive:
// concurrent callers race freely, the loser's insert conflicts, and the
// conflict is treated as success-by-another-writer. Any other failure is
// absorbed; the next batch implying this view retries the whole protocol.
func (c *Controller) syncView(ctx context.Context, view types.ViewSpec) {
	existing, err := c.ctrl.Get(ctx, c.teamID, view.ViewID)
	if err != nil {
		log.Printf("[WARN] ingest: virtual event lookup for (%s, %s) failed: %v", c.teamID, view.ViewID, err)
		return
	}
	if existing != nil {
		return
	}

	if err := c.wh.GetOrCreateView(ctx, c.datasetID, view); err != nil {
		log.Printf("[WARN] ingest: view creation for (%s, %s) failed, will retry on next trigger: %v",
			c.teamID, view.ViewID, err)
		return
	}

	// The guarded insert re-checks the tenant ceiling atomically, so a batch
	// that passed the pre-check cannot push the tenant past the limit.
	err = c.ctrl.CreateWithLimit(ctx, &control.VirtualEvent{
		TeamID:       c.teamID,
		ViewID:       view.ViewID,
		ReadableName: view.FriendlyName,
		Description:  view.Description,
	}, maxTenantViews)
	if err != nil {
		if verrors.IsRecordConflict(err) {
			// A concurrent writer won; its view creation was idempotent
			// and logically equivalent.
			return
		}
		if verrors.IsTenantViewLimit(err) {
			log.Printf("[WARN] ingest: team %s is at the virtual event limit (%d), skipping view (%s)",
				c.teamID, maxTenantViews, view.ViewID)
			return
		}
		log.Printf("[WARN] ingest: virtual event insert for (%s, %s) failed, will retry on next trigger: %v",
			c.teamID, view.ViewID, err)
	}
}
