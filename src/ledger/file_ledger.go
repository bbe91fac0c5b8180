package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// State 账本文件的内容
type State struct {
	RunID   string   `yaml:"run_id"`
	RootURL string   `yaml:"root_url"`
	Pages   []Record `yaml:"pages"`
}

// FileLedger 在内存中按url汇总记录，Close时原子地写入yaml文件
type FileLedger struct {
	mu      sync.Mutex
	path    string
	runID   string
	rootURL string
	records map[string]Record
	order   []string
}

func NewFileLedger(path, runID, rootURL string) *FileLedger {
	return &FileLedger{
		path:    path,
		runID:   runID,
		rootURL: rootURL,
		records: make(map[string]Record),
	}
}

func (l *FileLedger) Record(_ context.Context, r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := r.Kind + " " + r.URL
	prev, ok := l.records[key]
	if !ok {
		l.order = append(l.order, key)
	} else {
		// 后续状态更新不丢失发现时的信息
		if r.Parent == "" {
			r.Parent = prev.Parent
		}
		if r.LocalPath == "" {
			r.LocalPath = prev.LocalPath
		}
	}
	l.records[key] = r
	return nil
}

func (l *FileLedger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := State{RunID: l.runID, RootURL: l.rootURL}
	for _, k := range l.order {
		s.Pages = append(s.Pages, l.records[k])
	}
	sort.SliceStable(s.Pages, func(i, j int) bool {
		return s.Pages[i].Level < s.Pages[j].Level
	})
	return s
}

func (l *FileLedger) Close() error {
	data, err := yaml.Marshal(l.Snapshot())
	if err != nil {
		return err
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), l.path)
}

// Load 读取账本文件
func Load(path string) (State, error) {
	var s State
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = yaml.Unmarshal(data, &s)
	return s, err
}
