// Package ledger 记录一次运行中每个链接的状态(href/level/parent/status)
// 只做记录，不用于跨进程的断点续传
package ledger

import (
	"context"
	"time"
)

type Record struct {
	RunID     string    `yaml:"run_id"`
	URL       string    `yaml:"url"`
	Kind      string    `yaml:"kind"`
	Level     int       `yaml:"level"`
	Parent    string    `yaml:"parent,omitempty"`
	State     uint8     `yaml:"state"`
	LocalPath string    `yaml:"local_path,omitempty"`
	Remark    string    `yaml:"remark,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type Ledger interface {
	Record(ctx context.Context, r Record) error
	Close() error
}

// Nop 未配置账本时使用
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
func (Nop) Close() error                         { return nil }
