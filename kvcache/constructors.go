// Constructors for the two KVCacheView variants: Linear, a single
// contiguous block per sequence, and Paged, a per-sequence table of
// fixed-size block pointers. Mirrors the teacher's NewCausalCache /
// NewSWACache family: a handful of constructors around one shared struct,
// each fixing a different set of options.
package kvcache

// Linear addresses one contiguous [batch, 2, maxSeq, headsPerKV*headDim]
// block per sequence: address = ((seq*2+kv)*maxSeq + t) * headsPerKV*headDim.
type Linear struct {
	quant      Quantisation
	maxSeq     int
	headsPerKV int
	headDim    int

	storage []float32 // QuantNone
	qstore  []byte    // QuantInt8 / QuantFP8, codec.Size() bytes per element
	scale   []float32 // per-channel scale, parallel to qstore rows

	maxSequences int
}

// NewLinear allocates a Linear view sized for maxSequences concurrent
// sequences, each up to maxSeq timesteps, headsPerKV KV heads of headDim
// elements.
func NewLinear(maxSequences, maxSeq, headsPerKV, headDim int, quant Quantisation) *Linear {
	l := &Linear{
		quant:        quant,
		maxSeq:       maxSeq,
		headsPerKV:   headsPerKV,
		headDim:      headDim,
		maxSequences: maxSequences,
	}

	rowLen := maxSequences * 2 * maxSeq * headsPerKV * headDim
	if c := quant.codec(); c == nil {
		l.storage = make([]float32, rowLen)
	} else {
		l.qstore = make([]byte, rowLen*c.Size())
		l.scale = make([]float32, maxSequences*2*maxSeq)
	}

	return l
}

func (l *Linear) Capacity() int       { return l.maxSeq }
func (l *Linear) Quant() Quantisation { return l.quant }
func (l *Linear) HeadsPerKV() int     { return l.headsPerKV }
func (l *Linear) HeadDim() int        { return l.headDim }

func (l *Linear) Address(kv, timestep, head, dim int) (int, error) {
	return l.addressFor(0, kv, timestep, head, dim)
}

// AddressForSeq is the sequence-aware counterpart Address doesn't carry a
// sequence index for; the scheduler calls this one directly since it always
// knows which sequence it is writing.
func (l *Linear) AddressForSeq(seq, kv, timestep, head, dim int) (int, error) {
	return l.addressFor(seq, kv, timestep, head, dim)
}

func (l *Linear) addressFor(seq, kv, timestep, head, dim int) (int, error) {
	if err := checkTimestep(timestep, l.maxSeq); err != nil {
		return 0, err
	}
	base := ((seq*2+kv)*l.maxSeq + timestep) * l.headsPerKV * l.headDim
	return base + head*l.headDim + dim, nil
}

func (l *Linear) scaleIndex(seq, kv, timestep int) int {
	return (seq*2+kv)*l.maxSeq + timestep
}

// ReadSeq returns the value stored at (seq, kv, timestep, head, dim),
// dequantising through the view's codec when one is configured.
func (l *Linear) ReadSeq(seq, kv, timestep, head, dim int) (float32, error) {
	addr, err := l.addressFor(seq, kv, timestep, head, dim)
	if err != nil {
		return 0, err
	}
	codec := l.quant.codec()
	if codec == nil {
		return l.storage[addr], nil
	}
	scale := l.scale[l.scaleIndex(seq, kv, timestep)]
	off := addr * codec.Size()
	return codec.Decode(l.qstore[off:off+codec.Size()], scale), nil
}

// WriteSeq stores v at (seq, kv, timestep, head, dim). For quantised views,
// the per-channel scale for (seq, kv, timestep) must already reflect the
// magnitude of the full head*dim row being written; callers compute it via
// quant.ChannelScale over that row before writing its elements.
func (l *Linear) WriteSeq(seq, kv, timestep, head, dim int, v float32, scale float32) error {
	addr, err := l.addressFor(seq, kv, timestep, head, dim)
	if err != nil {
		return err
	}
	codec := l.quant.codec()
	if codec == nil {
		l.storage[addr] = v
		return nil
	}
	l.scale[l.scaleIndex(seq, kv, timestep)] = scale
	off := addr * codec.Size()
	codec.Encode(l.qstore[off:off+codec.Size()], v, scale)
	return nil
}

// Paged addresses K/V storage through a per-sequence table of block
// pointers; each block holds tokensPerBlock timesteps. Growing a sequence
// beyond its currently-assigned blocks allocates fresh ones from a shared
// free list, mirroring how the teacher's Causal cache scans cells for a
// free location (findLocs) rather than pre-committing storage per sequence.
type Paged struct {
	quant          Quantisation
	tokensPerBlock int
	headsPerKV     int
	headDim        int
	maxBlocks      int

	storage []float32
	qstore  []byte
	scale   []float32

	blockTables map[int][]int // sequence -> ordered list of block indices
	freeBlocks  []int
}

// NewPaged allocates a Paged view with maxBlocks blocks of tokensPerBlock
// timesteps each, shared across all sequences via a free list.
func NewPaged(maxBlocks, tokensPerBlock, headsPerKV, headDim int, quant Quantisation) *Paged {
	p := &Paged{
		quant:          quant,
		tokensPerBlock: tokensPerBlock,
		headsPerKV:     headsPerKV,
		headDim:        headDim,
		maxBlocks:      maxBlocks,
		blockTables:    make(map[int][]int),
	}

	blockElems := tokensPerBlock * headsPerKV * headDim
	total := maxBlocks * 2 * blockElems
	if c := quant.codec(); c == nil {
		p.storage = make([]float32, total)
	} else {
		p.qstore = make([]byte, total*c.Size())
		p.scale = make([]float32, maxBlocks*2*tokensPerBlock)
	}

	p.freeBlocks = make([]int, maxBlocks)
	for i := range p.freeBlocks {
		p.freeBlocks[i] = i
	}

	return p
}

func (p *Paged) Capacity() int       { return p.maxBlocks * p.tokensPerBlock }
func (p *Paged) Quant() Quantisation { return p.quant }
func (p *Paged) HeadsPerKV() int     { return p.headsPerKV }
func (p *Paged) HeadDim() int        { return p.headDim }

func (p *Paged) Address(kv, timestep, head, dim int) (int, error) {
	return 0, ErrNotSupported // Paged addressing requires a sequence; use AddressForSeq
}

// AddressForSeq looks up the block assigned to (seq, timestep/tokensPerBlock)
// and offsets within it by timestep%tokensPerBlock, allocating a fresh block
// from the free list on first touch of a given block index.
func (p *Paged) AddressForSeq(seq, kv, timestep, head, dim int) (int, error) {
	if timestep < 0 {
		return 0, checkTimestep(timestep, p.Capacity())
	}

	blockIdx := timestep / p.tokensPerBlock
	offset := timestep % p.tokensPerBlock

	table := p.blockTables[seq]
	for len(table) <= blockIdx {
		if len(p.freeBlocks) == 0 {
			return 0, ErrCacheFull
		}
		table = append(table, p.freeBlocks[len(p.freeBlocks)-1])
		p.freeBlocks = p.freeBlocks[:len(p.freeBlocks)-1]
	}
	p.blockTables[seq] = table

	block := table[blockIdx]
	blockElems := p.tokensPerBlock * p.headsPerKV * p.headDim
	base := (block*2+kv)*blockElems + offset*p.headsPerKV*p.headDim
	return base + head*p.headDim + dim, nil
}

// Release returns every block held by seq to the free list. The scheduler
// does not call it; blocks stay assigned until a caller releases them.
func (p *Paged) Release(seq int) {
	if table, ok := p.blockTables[seq]; ok {
		p.freeBlocks = append(p.freeBlocks, table...)
		delete(p.blockTables, seq)
	}
}

func (p *Paged) scaleIndex(block, kv, offset int) int {
	return (block*2+kv)*p.tokensPerBlock + offset
}

// ReadSeq returns the value stored at (seq, kv, timestep, head, dim),
// dequantising through the view's codec when one is configured.
func (p *Paged) ReadSeq(seq, kv, timestep, head, dim int) (float32, error) {
	addr, err := p.AddressForSeq(seq, kv, timestep, head, dim)
	if err != nil {
		return 0, err
	}
	codec := p.quant.codec()
	if codec == nil {
		return p.storage[addr], nil
	}
	block := p.blockTables[seq][timestep/p.tokensPerBlock]
	scale := p.scale[p.scaleIndex(block, kv, timestep%p.tokensPerBlock)]
	off := addr * codec.Size()
	return codec.Decode(p.qstore[off:off+codec.Size()], scale), nil
}

// WriteSeq stores v at (seq, kv, timestep, head, dim), allocating a fresh
// block on first touch. See Linear.WriteSeq for the scale convention.
func (p *Paged) WriteSeq(seq, kv, timestep, head, dim int, v float32, scale float32) error {
	addr, err := p.AddressForSeq(seq, kv, timestep, head, dim)
	if err != nil {
		return err
	}
	codec := p.quant.codec()
	if codec == nil {
		p.storage[addr] = v
		return nil
	}
	block := p.blockTables[seq][timestep/p.tokensPerBlock]
	p.scale[p.scaleIndex(block, kv, timestep%p.tokensPerBlock)] = scale
	off := addr * codec.Size()
	codec.Encode(p.qstore[off:off+codec.Size()], v, scale)
	return nil
}
