package cartsync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWindow = 400 * time.Millisecond

	// カートAPIが受け付ける1行の上限
	MaxLineQuantity int64 = 999

	defaultRequestTimeout = 10 * time.Second
)

var ErrClosed = errors.New("cartsync: engine closed")

type state int

const (
	stateIdle state = iota
	statePending
	stateInFlight
)

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// 最後の変更からこの時間だけ静かになったら送る
func WithWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

type opKind int

const (
	opAdd opKind = iota
	opSet
	opRemove
)

// 1行分の送信内容。addのqtyは増分、setは最終値
type op struct {
	variantID string
	kind      opKind
	qty       int64
}

type batch struct {
	clear bool
	ops   []op
	seq   uint64 // このバッチが反映するローカル変更の上限
}

// Engine はセッションごとに1つ作る。メソッドはどのgoroutineから呼んでもよい
type Engine struct {
	remote  Remote
	clock   clockwork.Clock
	window  time.Duration
	timeout time.Duration
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mirror    *Mirror
	state     state
	timer     clockwork.Timer
	gen       uint64 // 古いタイマーの発火を捨てるための世代
	seq       uint64 // ローカル変更の論理時刻
	syncedSeq uint64 // 送信を終えたバッチのseq
	pending   map[string]*op // 次のバッチで送る行ごとの変更
	clearAll  bool
	done      chan struct{} // in-flightバッチの完了
	closed    bool
}

func New(remote Remote, opts ...Option) *Engine {
	e := &Engine{
		remote:  remote,
		clock:   clockwork.NewRealClock(),
		window:  DefaultWindow,
		timeout: defaultRequestTimeout,
		log:     zap.NewNop(),
		mirror:  newMirror(),
		pending: make(map[string]*op),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// 表示用の行（追加順）
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mirror.snapshot()
}

// 同じバリアントなら数量を足す。表示用の値は最初に入れたものを残す。
// サーバーへは窓の間に足した分をまとめて加算で送るので、ミラーに無いサーバー側の数量も消えない
func (e *Engine) AddLine(item Line, qty int64) {
	if qty <= 0 || item.VariantID == "" {
		return
	}
	qty = capQuantity(qty)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	l := item
	if cur, ok := e.mirror.get(item.VariantID); ok {
		l = cur.Line
		l.Quantity = capQuantity(l.Quantity + qty)
	} else {
		l.Quantity = qty
	}
	e.mirror.put(l, e.seq)

	// 削除や上書きの後に足した分は最終値で送る
	switch p, ok := e.pending[l.VariantID]; {
	case !ok:
		e.pending[l.VariantID] = &op{variantID: l.VariantID, kind: opAdd, qty: qty}
	case p.kind == opAdd:
		p.qty = capQuantity(p.qty + qty)
	default:
		p.kind = opSet
		p.qty = l.Quantity
	}
	e.scheduleLocked()
}

// 0以下は削除
func (e *Engine) SetLineQuantity(variantID string, qty int64) {
	if qty <= 0 {
		e.RemoveLine(variantID)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.mirror.get(variantID)
	if !ok {
		return
	}
	e.seq++
	l := cur.Line
	l.Quantity = capQuantity(qty)
	e.mirror.put(l, e.seq)
	e.pending[variantID] = &op{variantID: variantID, kind: opSet, qty: l.Quantity}
	e.scheduleLocked()
}

func (e *Engine) RemoveLine(variantID string) {
	if variantID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	e.mirror.remove(variantID, e.seq)
	e.pending[variantID] = &op{variantID: variantID, kind: opRemove}
	e.scheduleLocked()
}

// 行ごとの未送信の変更はclearに吸収される
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	e.mirror.reset(e.seq)
	e.pending = make(map[string]*op)
	e.clearAll = true
	e.scheduleLocked()
}

// タイマーを張り直す。送信中なら完了後に続きのバッチを組む
func (e *Engine) ScheduleSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleLocked()
}

func capQuantity(q int64) int64 {
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

func (e *Engine) scheduleLocked() {
	if e.closed || e.state == stateInFlight {
		return
	}

	// 生きているタイマーは常に1つ
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = e.clock.AfterFunc(e.window, func() { e.fire(gen) })
	e.state = statePending
}

func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.gen || e.state != statePending {
		e.mu.Unlock()
		return
	}
	b := e.takeBatchLocked()
	e.mu.Unlock()

	e.run(b)
}

func (e *Engine) takeBatchLocked() batch {
	e.timer = nil

	b := batch{clear: e.clearAll, seq: e.seq}
	for _, p := range e.pending {
		b.ops = append(b.ops, *p)
	}
	sort.Slice(b.ops, func(i, j int) bool { return b.ops[i].variantID < b.ops[j].variantID })

	e.pending = make(map[string]*op)
	e.clearAll = false
	e.state = stateInFlight
	e.done = make(chan struct{})
	return b
}

// clearを先に送り、行ごとの呼び出しは並行に投げる。失敗はログだけ
func (e *Engine) run(b batch) {
	if b.clear {
		if err := e.call(e.remote.Clear); err != nil {
			e.log.Warn("cart sync: clear failed", zap.Error(err))
		}
	}

	var g errgroup.Group
	for _, o := range b.ops {
		g.Go(func() error {
			err := e.call(func(ctx context.Context) error {
				switch o.kind {
				case opAdd:
					return e.remote.Add(ctx, o.variantID, o.qty)
				case opSet:
					return e.remote.SetQuantity(ctx, o.variantID, o.qty)
				default:
					return e.remote.Remove(ctx, o.variantID)
				}
			})
			if err != nil {
				e.log.Warn("cart sync: line failed",
					zap.String("variant_id", o.variantID),
					zap.Int64("quantity", o.qty),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	e.complete(b)
}

func (e *Engine) call(f func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()
	return f(ctx)
}

func (e *Engine) complete(b batch) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b.seq > e.syncedSeq {
		e.syncedSeq = b.seq
	}
	e.state = stateIdle
	close(e.done)

	// 送信中に入った変更
	if len(e.pending) > 0 || e.clearAll {
		e.scheduleLocked()
	}
}

// 待機中のバッチをすぐ送り、送信中のものも含めて全部終わるまで待つ
func (e *Engine) Flush(ctx context.Context) error {
	for {
		e.mu.Lock()
		switch {
		case e.state == stateInFlight:
			done := e.done
			e.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}

		case e.state == statePending || len(e.pending) > 0 || e.clearAll:
			if e.closed {
				e.mu.Unlock()
				return ErrClosed
			}
			if e.timer != nil {
				e.timer.Stop()
			}
			e.gen++
			b := e.takeBatchLocked()
			e.mu.Unlock()
			e.run(b)

		default:
			e.mu.Unlock()
			return nil
		}
	}
}

// サーバーのカートを取り込む。
// 前回の同期より後にローカルで変更した行はローカルを優先し、未同期の削除とclearは戻さない。
// 未送信の加算はサーバーの数量に積む。取得に失敗したらミラーはそのまま。
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	threshold := e.syncedSeq
	idle := e.state != stateInFlight
	e.mu.Unlock()

	lines, err := e.remote.Fetch(ctx)
	if err != nil {
		e.log.Warn("cart sync: hydrate failed", zap.Error(err))
		return errors.Wrap(err, "hydrate")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// 取得中にバッチが動いたら、応答に加算が入っているか分からない
	rebase := idle && e.state != stateInFlight && e.syncedSeq == threshold
	e.applyServerLocked(lines, threshold, rebase)
	return nil
}

func (e *Engine) applyServerLocked(lines []Line, threshold uint64, rebase bool) {
	m := e.mirror

	seen := make(map[string]struct{}, len(lines))
	for _, sl := range lines {
		if sl.VariantID == "" || sl.Quantity <= 0 {
			continue
		}
		seen[sl.VariantID] = struct{}{}

		if cur, ok := m.get(sl.VariantID); ok {
			if cur.seq > threshold {
				if p, ok := e.pending[sl.VariantID]; ok && rebase && p.kind == opAdd {
					cur.Quantity = capQuantity(sl.Quantity + p.qty)
				}
				continue
			}
			cur.Quantity = sl.Quantity
			continue
		}

		if ts, ok := m.tombstones[sl.VariantID]; ok && ts > threshold {
			continue
		}
		if m.clearedSeq > threshold {
			continue
		}
		m.put(sl, 0)
	}

	// サーバーに無い行は、未同期の追加だけ残す
	for _, id := range append([]string(nil), m.order...) {
		if _, ok := seen[id]; ok {
			continue
		}
		if m.lines[id].seq > threshold {
			continue
		}
		m.forget(id)
	}

	m.pruneTombstones(threshold)
}

// 待機中のタイマーを止める。未送信の変更は捨てるので先にFlushすること
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	if e.state == statePending {
		e.state = stateIdle
	}
	e.cancel()
}
