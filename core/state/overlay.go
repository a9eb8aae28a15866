package state

import "vaultpay/storage"

// overlay stages writes on top of a parent database. Reads fall through to
// the parent until a staged write shadows them. Nothing reaches the parent
// before flush, which gives WithTransaction its discard-on-error semantics.
type overlay struct {
	parent  storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

func newOverlay(parent storage.Database) *overlay {
	return &overlay{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *overlay) Put(key, value []byte) error {
	delete(o.deletes, string(key))
	o.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

func (o *overlay) Get(key []byte) ([]byte, error) {
	if _, gone := o.deletes[string(key)]; gone {
		return nil, storage.ErrKeyNotFound
	}
	if value, ok := o.writes[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.parent.Get(key)
}

func (o *overlay) Has(key []byte) (bool, error) {
	if _, gone := o.deletes[string(key)]; gone {
		return false, nil
	}
	if _, ok := o.writes[string(key)]; ok {
		return true, nil
	}
	return o.parent.Has(key)
}

func (o *overlay) Delete(key []byte) error {
	delete(o.writes, string(key))
	o.deletes[string(key)] = struct{}{}
	return nil
}

func (o *overlay) Close() error { return nil }

func (o *overlay) flush() error {
	for key := range o.deletes {
		if err := o.parent.Delete([]byte(key)); err != nil {
			return err
		}
	}
	for key, value := range o.writes {
		if err := o.parent.Put([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}

var _ storage.Database = (*overlay)(nil)
