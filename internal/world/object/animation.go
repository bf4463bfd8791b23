package object

import (
	"fmt"
	"time"
)

// AnimID - идентификатор анимации изображения
type AnimID uint32

const (
	AnimIdle AnimID = iota
	AnimWalkUp
	AnimWalkRight
	AnimWalkDown
	AnimWalkLeft
	AnimAttack
	AnimDeath
)

var animNames = map[AnimID]string{
	AnimIdle:      "idle",
	AnimWalkUp:    "walk_up",
	AnimWalkRight: "walk_right",
	AnimWalkDown:  "walk_down",
	AnimWalkLeft:  "walk_left",
	AnimAttack:    "attack",
	AnimDeath:     "death",
}

// String возвращает имя анимации, как в файлах ассетов
func (id AnimID) String() string {
	if name, ok := animNames[id]; ok {
		return name
	}
	return fmt.Sprintf("anim(%d)", uint32(id))
}

// ParseAnimID ищет анимацию по имени
func ParseAnimID(name string) (AnimID, bool) {
	for id, n := range animNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// IsMovementAnim - анимации ходьбы. Первый кадр у них стоячая поза,
// цикл идёт со второго.
func IsMovementAnim(id AnimID) bool {
	switch id {
	case AnimWalkUp, AnimWalkRight, AnimWalkDown, AnimWalkLeft:
		return true
	}
	return false
}

// Animation возвращает текущую анимацию
func (o *WorldObject) Animation() AnimID {
	return o.animID
}

// AnimationFrame возвращает текущий кадр
func (o *WorldObject) AnimationFrame() uint32 {
	return o.animFrame
}

// startFrame - кадр, с которого начинается (и повторяется) цикл анимации
func startFrame(id AnimID, rec AnimationRecord) uint32 {
	if IsMovementAnim(id) && rec.FrameBegin+1 < rec.FrameEnd {
		return rec.FrameBegin + 1
	}
	return rec.FrameBegin
}

// SetAnimation переключает анимацию. Без изображения вызов игнорируется.
func (o *WorldObject) SetAnimation(id AnimID) {
	if o.animID == id {
		return
	}
	imageID := o.ImageID()
	if imageID == 0 {
		return
	}

	rec, ok := o.deps.animation(imageID, id)
	if !ok {
		if id != AnimIdle {
			return
		}
		// У изображения нет IDLE: после ходьбы замираем на её стоячем кадре,
		// после остальных анимаций на нулевом
		var frame uint32
		if IsMovementAnim(o.animID) {
			if prev, found := o.deps.animation(imageID, o.animID); found {
				frame = prev.FrameBegin
			}
		}
		o.animID = AnimIdle
		o.animFrame = frame
		o.animTimer = o.deps.now()
		o.deps.markDirty()
		return
	}

	o.animID = id
	o.animFrame = startFrame(id, rec)
	o.animTimer = o.deps.now()
	o.deps.markDirty()
}

// Tick продвигает кадр анимации, если с прошлой смены прошло больше FrameDelay
func (o *WorldObject) Tick(now time.Time) {
	imageID := o.ImageID()
	if imageID == 0 {
		return
	}
	rec, ok := o.deps.animation(imageID, o.animID)
	if !ok {
		return
	}
	if now.Sub(o.animTimer) <= rec.FrameDelay {
		return
	}

	o.animTimer = now
	o.animFrame++
	if o.animFrame > rec.FrameEnd {
		o.animFrame = startFrame(o.animID, rec)
	}
	o.deps.markDirty()
}
