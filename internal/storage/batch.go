package storage

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

type Op struct {
	Kind   OpKind
	Path   string
	Fields Fields
}

// Batch collects writes to be committed atomically with Store.Commit.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(path string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Path: path, Fields: fields})
	return b
}

func (b *Batch) Update(path string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Path: path, Fields: fields})
	return b
}

func (b *Batch) Delete(path string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Path: path})
	return b
}

func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Validate checks every path in the batch.
func (b *Batch) Validate() error {
	for _, op := range b.Ops() {
		if _, _, err := SplitDocument(op.Path); err != nil {
			return err
		}
	}
	return nil
}
