// Package record implements an Active Record mapping: a Record holds one
// table row and turns Find, FindByPk, Save and Delete into SQL statements run
// through a dblib.Adapter, publishing pre/post events around each operation.
//
// A Record is either new (no persisted identity, Save inserts) or persisted
// (primary key known, Save updates and Delete is allowed):
//
//	[new] --Save--> [persisted] --Save--> [persisted]
//	[persisted] --Delete, 1 row--> [new]
//	[persisted] --Delete, 0 or >1 rows--> [persisted]
//
// Records are not safe for concurrent use.
package record

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"arec/internal/dblib"
)

var defaultPrimaryKey = []string{"id"}

// Record is one mapped row.
type Record struct {
	table       dblib.TableIdentifier
	adapter     dblib.Adapter
	sql         *dblib.SQL // built lazily from adapter and table
	primaryKey  []string
	primaryData dblib.Fields // nil while the record is new
	data        dblib.Fields
	events      *Events
	logger      *zap.Logger
}

// Option configures a Record.
type Option func(*options)

type options struct {
	adapter    dblib.Adapter
	primaryKey []string
	table      dblib.TableIdentifier
	typeName   string
	events     *Events
	logger     *zap.Logger
}

// WithAdapter sets the adapter statements are executed with.
func WithAdapter(a dblib.Adapter) Option {
	return func(o *options) { o.adapter = a }
}

// WithPrimaryKey sets the ordered primary key columns. The default is "id".
func WithPrimaryKey(cols ...string) Option {
	return func(o *options) { o.primaryKey = append([]string(nil), cols...) }
}

// WithTableName sets the table, "schema.table" or "table".
func WithTableName(name string) Option {
	return func(o *options) { o.table = dblib.ParseTableIdentifier(name) }
}

// WithTable sets the table identifier.
func WithTable(t dblib.TableIdentifier) Option {
	return func(o *options) { o.table = t }
}

// WithTypeName sets the qualified type name the default table name is
// derived from when no table is configured. See DefaultTableName.
func WithTypeName(name string) Option {
	return func(o *options) { o.typeName = name }
}

// WithEvents shares an event manager. By default each record gets its own.
func WithEvents(e *Events) Option {
	return func(o *options) { o.events = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New returns a new, empty record.
func New(opts ...Option) *Record {
	o := &options{typeName: defaultTypeName}
	for _, opt := range opts {
		opt(o)
	}

	r := &Record{
		table:   o.table,
		adapter: o.adapter,
		events:  o.events,
		logger:  o.logger,
		data:    dblib.Fields{},
	}
	if r.table.IsZero() {
		r.table = defaultTable(o.typeName)
	}
	r.SetPrimaryKey(o.primaryKey...)
	if r.events == nil {
		r.events = NewEvents()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// TableName returns the table the record maps to.
func (r *Record) TableName() dblib.TableIdentifier { return r.table }

func (r *Record) SetTableName(t dblib.TableIdentifier) *Record {
	r.table = t
	r.sql = nil
	return r
}

// Adapter returns the configured adapter or ErrAdapterNotSet.
func (r *Record) Adapter() (dblib.Adapter, error) {
	if r.adapter == nil {
		return nil, ErrAdapterNotSet
	}
	return r.adapter, nil
}

func (r *Record) SetAdapter(a dblib.Adapter) *Record {
	r.adapter = a
	r.sql = nil
	return r
}

// SQL returns the statement builder for the record's table.
func (r *Record) SQL() (*dblib.SQL, error) {
	if r.sql == nil {
		a, err := r.Adapter()
		if err != nil {
			return nil, err
		}
		r.sql = dblib.NewSQL(a.Dialect(), r.TableName())
	}
	return r.sql, nil
}

// SetSQL replaces the statement builder. It is dropped again by SetAdapter,
// SetTableName and on the records returned by Create and Find.
func (r *Record) SetSQL(sql *dblib.SQL) *Record {
	r.sql = sql
	return r
}

// PrimaryKey returns the primary key columns in order.
func (r *Record) PrimaryKey() []string { return slices.Clone(r.primaryKey) }

// SetPrimaryKey sets the primary key columns; no columns restores the default.
func (r *Record) SetPrimaryKey(cols ...string) *Record {
	if len(cols) == 0 {
		cols = defaultPrimaryKey
	}
	r.primaryKey = slices.Clone(cols)
	return r
}

// PrimaryData returns the persisted key values, or nil while the record is new.
func (r *Record) PrimaryData() dblib.Fields { return r.primaryData.Clone() }

// IsNew reports whether the record has no persisted identity.
func (r *Record) IsNew() bool { return r.primaryData == nil }

// Events returns the record's event manager.
func (r *Record) Events() *Events { return r.events }

// Find returns one record per row matching cond, in result order.
func (r *Record) Find(ctx context.Context, cond Condition) ([]*Record, error) {
	sql, err := r.SQL()
	if err != nil {
		return nil, err
	}
	sel := sql.Select()
	cond.apply(sel)

	r.events.Publish(&Event{Name: EventFindPre, Record: r, Statement: sel})
	result, err := r.executeSelect(ctx, sel)
	if err != nil {
		return nil, err
	}
	r.events.Publish(&Event{Name: EventFindPost, Record: r, Statement: sel, Result: result})
	return result, nil
}

// FindByPk returns the record whose primary key equals pk, matched
// positionally with PrimaryKey. It returns nil and no error when no row
// matches; if several rows match the first one wins.
func (r *Record) FindByPk(ctx context.Context, pk ...dblib.Value) (*Record, error) {
	where, err := r.primaryCondition(pk)
	if err != nil {
		return nil, err
	}
	sql, err := r.SQL()
	if err != nil {
		return nil, err
	}
	sel := sql.Select().WhereFields(where)

	r.events.Publish(&Event{Name: EventFindByPkPre, Record: r, Statement: sel})
	result, err := r.executeSelect(ctx, sel)
	if err != nil {
		return nil, err
	}
	r.events.Publish(&Event{Name: EventFindByPkPost, Record: r, Statement: sel, Result: result})
	if len(result) == 0 {
		return nil, nil
	}
	return result[0], nil
}

// Delete removes the persisted row and returns the affected row count. When
// exactly one row was deleted the record becomes new again.
func (r *Record) Delete(ctx context.Context) (int64, error) {
	if r.IsNew() {
		return 0, fmt.Errorf("delete from %s: %w", r.table, ErrRecordNotPersisted)
	}
	sql, err := r.SQL()
	if err != nil {
		return 0, err
	}

	r.events.Publish(&Event{Name: EventDeletePre, Record: r})
	del := sql.Delete().WhereFields(r.primaryData)
	affected, err := r.executeDelete(ctx, del)
	if err != nil {
		return 0, err
	}
	r.events.Publish(&Event{Name: EventDeletePost, Record: r, Statement: del})
	return affected, nil
}

// Save inserts a new record or updates a persisted one and returns the
// affected row count. The statement is built from the fields as they are
// after the save.pre listeners ran.
func (r *Record) Save(ctx context.Context) (int64, error) {
	sql, err := r.SQL()
	if err != nil {
		return 0, err
	}

	r.events.Publish(&Event{Name: EventSavePre, Record: r})
	var (
		stmt     dblib.Statement
		affected int64
	)
	if r.IsNew() {
		ins := sql.Insert().Values(r.data)
		if len(r.primaryKey) == 1 {
			ins.Returning(r.primaryKey[0])
		}
		stmt = ins
		affected, err = r.executeInsert(ctx, ins)
	} else {
		stmt = sql.Update().Set(r.data).WhereFields(r.primaryData)
		affected, err = r.executeUpdate(ctx, stmt)
	}
	if err != nil {
		return 0, err
	}
	r.events.Publish(&Event{Name: EventSavePost, Record: r, Statement: stmt})
	return affected, nil
}

// Create returns a new record with the same configuration whose fields are
// replaced by fields. Nothing is persisted until Save is called.
func (r *Record) Create(fields dblib.Fields) *Record {
	c := r.clone()
	c.ExchangeArray(fields)
	return c
}

// ExchangeArray replaces the record's fields with a copy of fields.
func (r *Record) ExchangeArray(fields dblib.Fields) {
	r.data = fields.Clone()
	if r.data == nil {
		r.data = dblib.Fields{}
	}
}

// GetArrayCopy returns a copy of the record's fields.
func (r *Record) GetArrayCopy() dblib.Fields { return r.data.Clone() }

// Get returns a single field.
func (r *Record) Get(column string) (dblib.Value, bool) {
	v, ok := r.data[column]
	return v, ok
}

// Set assigns a single field.
func (r *Record) Set(column string, v dblib.Value) *Record {
	r.data[column] = v
	return r
}

func (r *Record) executeSelect(ctx context.Context, sel *dblib.Select) ([]*Record, error) {
	res, err := r.execute(ctx, EventFindPre, sel)
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec := r.clone()
		if err := rec.applyPrimaryData(row); err != nil {
			return nil, err
		}
		rec.ExchangeArray(row)
		records = append(records, rec)
	}
	return records, nil
}

func (r *Record) executeDelete(ctx context.Context, del *dblib.Delete) (int64, error) {
	res, err := r.execute(ctx, EventDeletePre, del)
	if err != nil {
		return 0, err
	}
	if res.AffectedRows == 1 {
		r.primaryData = nil
	}
	return res.AffectedRows, nil
}

func (r *Record) executeInsert(ctx context.Context, ins *dblib.Insert) (int64, error) {
	res, err := r.execute(ctx, EventSavePre, ins)
	if err != nil {
		return 0, err
	}
	if !res.GeneratedValue.IsNull() && len(r.primaryKey) == 1 {
		col := r.primaryKey[0]
		if _, ok := r.data[col]; !ok {
			r.data[col] = res.GeneratedValue
		}
		r.primaryData = dblib.Fields{col: res.GeneratedValue}
		return res.AffectedRows, nil
	}
	if err := r.applyPrimaryData(r.data); err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

func (r *Record) executeUpdate(ctx context.Context, stmt dblib.Statement) (int64, error) {
	res, err := r.execute(ctx, EventSavePre, stmt)
	if err != nil {
		return 0, err
	}
	if err := r.applyPrimaryData(r.data); err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

func (r *Record) execute(ctx context.Context, event string, stmt dblib.Statement) (*dblib.Result, error) {
	a, err := r.Adapter()
	if err != nil {
		return nil, err
	}
	res, err := a.Execute(ctx, stmt)
	if err != nil {
		r.logger.Debug("statement failed",
			zap.String("event", event),
			zap.Stringer("table", r.table),
			zap.Error(err))
		return nil, err
	}
	r.logger.Debug("statement executed",
		zap.String("event", event),
		zap.Stringer("table", r.table),
		zap.Int64("affected", res.AffectedRows),
		zap.Int("rows", len(res.Rows)))
	return res, nil
}

// primaryCondition pairs each primary key column with the value at the same position.
func (r *Record) primaryCondition(pk []dblib.Value) (dblib.Fields, error) {
	if len(pk) != len(r.primaryKey) {
		return nil, fmt.Errorf("%w: %s has %d key columns, got %d values",
			ErrPrimaryKeyArity, r.table, len(r.primaryKey), len(pk))
	}
	where := make(dblib.Fields, len(pk))
	for i, col := range r.primaryKey {
		where[col] = pk[i]
	}
	return where, nil
}

// applyPrimaryData takes the primary key values from data. On error the
// record's current primary data is left unchanged.
func (r *Record) applyPrimaryData(data dblib.Fields) error {
	primary := make(dblib.Fields, len(r.primaryKey))
	for _, col := range r.primaryKey {
		v, ok := data[col]
		if !ok || v.IsNull() {
			return fmt.Errorf("%w: %s in %s", ErrMissingPrimaryKey, col, r.table)
		}
		primary[col] = v
	}
	r.primaryData = primary
	return nil
}

// clone returns a copy with the same configuration and fields but no
// persisted identity and no cached statement builder.
func (r *Record) clone() *Record {
	return &Record{
		table:      r.table,
		adapter:    r.adapter,
		primaryKey: slices.Clone(r.primaryKey),
		data:       r.data.Clone(),
		events:     r.events.clone(),
		logger:     r.logger,
	}
}
