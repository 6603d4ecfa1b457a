package cartsync

// 追加時点の表示用スナップショット。価格は後から変わっても更新しない
type Line struct {
	VariantID   string `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductSlug string `json:"product_slug,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"image_url,omitempty"`
	Quantity    int64  `json:"quantity"`
}

type mirrorLine struct {
	Line
	seq uint64 // 最後にローカルで変更した論理時刻。サーバー由来は0
}

// ClientCartMirror。Engineのロック下でだけ触る
type Mirror struct {
	lines      map[string]*mirrorLine
	order      []string
	tombstones map[string]uint64 // 未同期の削除
	clearedSeq uint64            // 最後にclearした論理時刻
}

func newMirror() *Mirror {
	return &Mirror{
		lines:      make(map[string]*mirrorLine),
		tombstones: make(map[string]uint64),
	}
}

func (m *Mirror) get(variantID string) (*mirrorLine, bool) {
	l, ok := m.lines[variantID]
	return l, ok
}

func (m *Mirror) put(l Line, seq uint64) {
	if cur, ok := m.lines[l.VariantID]; ok {
		cur.Line = l
		cur.seq = seq
		return
	}
	m.lines[l.VariantID] = &mirrorLine{Line: l, seq: seq}
	m.order = append(m.order, l.VariantID)
	delete(m.tombstones, l.VariantID)
}

// まだ見えていないサーバー行も消せるように、行が無くても削除を記録する
func (m *Mirror) remove(variantID string, seq uint64) {
	m.forget(variantID)
	m.tombstones[variantID] = seq
}

func (m *Mirror) forget(variantID string) {
	if _, ok := m.lines[variantID]; !ok {
		return
	}
	delete(m.lines, variantID)
	for i, id := range m.order {
		if id == variantID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Mirror) reset(seq uint64) {
	m.lines = make(map[string]*mirrorLine)
	m.order = nil
	m.tombstones = make(map[string]uint64)
	m.clearedSeq = seq
}

// 同期済みとみなせる削除を捨てる
func (m *Mirror) pruneTombstones(upTo uint64) {
	for id, seq := range m.tombstones {
		if seq <= upTo {
			delete(m.tombstones, id)
		}
	}
}

func (m *Mirror) snapshot() []Line {
	out := make([]Line, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.lines[id].Line)
	}
	return out
}
