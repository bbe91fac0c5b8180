// 数据库表，一次运行中每个链接一条记录，(run_id, kind, url)唯一
package schema

import (
	"time"
)

type Page struct {
	ID        uint64    `xorm:"bigint pk autoincr 'id'"`
	RunID     string    `xorm:"varchar(36) notnull unique(uk_run_url) 'run_id'"`
	Kind      string    `xorm:"varchar(16) notnull unique(uk_run_url) 'kind'"`
	URL       string    `xorm:"varchar(2048) notnull unique(uk_run_url) 'url'"`
	Level     int       `xorm:"int notnull 'level'"`
	Parent    string    `xorm:"varchar(2048) 'parent'"`
	State     uint8     `xorm:"int 'state'"`
	LocalPath string    `xorm:"text 'local_path'"`
	Remark    string    `xorm:"text 'remark'"`
	CreatedAt time.Time `xorm:"created notnull 'created_at'"`
	UpdatedAt time.Time `xorm:"updated notnull 'updated_at'"`
}

func (p *Page) TableName() string {
	return "pages"
}
