package object

import (
	"time"

	"github.com/annel0/bubble-world/internal/guid"
)

// AnimationRecord описывает кадры одной анимации изображения.
// Кадры FrameBegin..FrameEnd включительно.
type AnimationRecord struct {
	FrameBegin uint32
	FrameEnd   uint32
	FrameDelay time.Duration
}

// AnimationLookup ищет запись анимации по изображению и id анимации.
type AnimationLookup interface {
	Animation(imageID uint32, anim AnimID) (AnimationRecord, bool)
}

// Presenter получает запросы на перерисовку. Вызов не должен блокировать.
type Presenter interface {
	MarkDirty()
}

// NameRequester отправляет запрос имени объекта. Ответ приходит позже
// через SetName; вызов не должен блокировать.
type NameRequester interface {
	RequestName(id guid.GUID)
}

// Deps - внешние коллабораторы объекта. Любое поле может быть nil.
type Deps struct {
	Animations AnimationLookup
	Presenter  Presenter
	Names      NameRequester
	Clock      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d Deps) markDirty() {
	if d.Presenter != nil {
		d.Presenter.MarkDirty()
	}
}

func (d Deps) animation(imageID uint32, anim AnimID) (AnimationRecord, bool) {
	if d.Animations == nil {
		return AnimationRecord{}, false
	}
	return d.Animations.Animation(imageID, anim)
}
