package logic

import "sync"

// ProjectLocks 按项目互斥锁。提款与还款巡检从前置校验到状态翻转全程持锁，
// 保证同一项目上的并发操作不会交叉产生重复打款或丢失更新，不同项目互不阻塞。
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewProjectLocks 创建项目锁表
func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock 锁定指定项目，返回解锁函数
func (p *ProjectLocks) Lock(projectId int64) func() {
	p.mu.Lock()
	l, ok := p.locks[projectId]
	if !ok {
		l = &sync.Mutex{}
		p.locks[projectId] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
