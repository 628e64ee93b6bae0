package domain

import (
	"time"

	"github.com/Mun1z/Imgeneus/internal/persist"
)

// ActiveBuff - наложенный эффект умения.
type ActiveBuff struct {
	Skill     *Skill
	Creator   Killable
	ResetTime time.Time
	Passive   bool

	stopTick func()
	index    int // позиция в expiryQueue, -1 - не в очереди
	removed  bool
}

func (b *ActiveBuff) SkillID() uint16 { return b.Skill.ID }
func (b *ActiveBuff) SkillLevel() uint8 { return b.Skill.Level }

// Remaining - сколько осталось до истечения (не меньше нуля).
func (b *ActiveBuff) Remaining(now time.Time) time.Duration {
	return max(b.ResetTime.Sub(now), 0)
}

// Expired - наступил ли момент истечения. Никогда не раньше ResetTime.
func (b *ActiveBuff) Expired(now time.Time) bool {
	return !now.Before(b.ResetTime)
}

// Record - снимок для очереди записи.
func (b *ActiveBuff) Record() persist.BuffRecord {
	return persist.BuffRecord{
		SkillID:    b.Skill.ID,
		SkillLevel: b.Skill.Level,
		ResetTime:  b.ResetTime,
		Passive:    b.Passive,
	}
}

// expiryQueue - min-heap баффов по ResetTime (container/heap).
type expiryQueue []*ActiveBuff

func (q expiryQueue) Len() int { return len(q) }

func (q expiryQueue) Less(i, j int) bool {
	return q[i].ResetTime.Before(q[j].ResetTime)
}

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	b := x.(*ActiveBuff)
	b.index = len(*q)
	*q = append(*q, b)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	b := old[n-1]
	old[n-1] = nil // избегаем утечки памяти
	b.index = -1
	*q = old[:n-1]
	return b
}

// peek - ближайший к истечению бафф.
func (q expiryQueue) peek() *ActiveBuff {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
