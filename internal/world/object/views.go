package object

import (
	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/updatefield"
)

// Unit - представление юнита (unit, player, creature)
type Unit struct {
	*WorldObject
}

// AsUnit сужает объект до юнита
func (o *WorldObject) AsUnit() (Unit, bool) {
	if !o.kind.IsUnit() {
		return Unit{}, false
	}
	return Unit{o}, true
}

func (u Unit) Health() uint32    { return u.fields.Uint32(updatefield.UnitFieldHealth) }
func (u Unit) MaxHealth() uint32 { return u.fields.Uint32(updatefield.UnitFieldMaxHealth) }
func (u Unit) Level() uint32     { return u.fields.Uint32(updatefield.UnitFieldLevel) }

// SetHealth ограничивает значение сверху MaxHealth
func (u Unit) SetHealth(hp uint32) {
	if limit := u.MaxHealth(); hp > limit {
		hp = limit
	}
	u.fields.SetUint32(updatefield.UnitFieldHealth, hp)
}

// SetMaxHealth урезает текущее здоровье, если оно стало больше максимума
func (u Unit) SetMaxHealth(limit uint32) {
	u.fields.SetUint32(updatefield.UnitFieldMaxHealth, limit)
	if u.Health() > limit {
		u.fields.SetUint32(updatefield.UnitFieldHealth, limit)
	}
}

func (u Unit) SetLevel(level uint32) { u.fields.SetUint32(updatefield.UnitFieldLevel, level) }

func (u Unit) IsAlive() bool { return u.Health() > 0 }

func (u Unit) Race() uint8   { return u.fields.Byte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Race) }
func (u Unit) Class() uint8  { return u.fields.Byte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Class) }
func (u Unit) Gender() uint8 { return u.fields.Byte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Gender) }

func (u Unit) SetRace(v uint8) {
	u.fields.SetByte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Race, v)
}

func (u Unit) SetClass(v uint8) {
	u.fields.SetByte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Class, v)
}

func (u Unit) SetGender(v uint8) {
	u.fields.SetByte(updatefield.UnitFieldBytes0, updatefield.UnitBytes0Gender, v)
}

func (u Unit) MoveSpeed() float32 { return u.fields.Float(updatefield.UnitFieldMoveSpeed) }

func (u Unit) SetMoveSpeed(speed float32) {
	u.fields.SetFloat(updatefield.UnitFieldMoveSpeed, speed)
}

// Target возвращает GUID цели (Empty - цели нет)
func (u Unit) Target() guid.GUID {
	return guid.GUID(u.fields.Uint64(updatefield.UnitFieldTarget))
}

func (u Unit) SetTarget(g guid.GUID) {
	u.fields.SetUint64(updatefield.UnitFieldTarget, uint64(g))
}

// Player - представление игрока
type Player struct {
	Unit
}

func (o *WorldObject) AsPlayer() (Player, bool) {
	if o.kind != KindPlayer {
		return Player{}, false
	}
	return Player{Unit{o}}, true
}

func (p Player) XP() uint32          { return p.fields.Uint32(updatefield.PlayerFieldXP) }
func (p Player) NextLevelXP() uint32 { return p.fields.Uint32(updatefield.PlayerFieldNextLevelXP) }
func (p Player) Money() uint64       { return p.fields.Uint64(updatefield.PlayerFieldMoney) }

func (p Player) SetNextLevelXP(xp uint32) {
	p.fields.SetUint32(updatefield.PlayerFieldNextLevelXP, xp)
}

func (p Player) SetMoney(amount uint64) {
	p.fields.SetUint64(updatefield.PlayerFieldMoney, amount)
}

// AddXP начисляет опыт и повышает уровень, пока хватает опыта.
// При NextLevelXP == 0 уровень не меняется.
func (p Player) AddXP(amount uint32) {
	xp := p.XP() + amount
	for next := p.NextLevelXP(); next > 0 && xp >= next; next = p.NextLevelXP() {
		xp -= next
		p.SetLevel(p.Level() + 1)
	}
	p.fields.SetUint32(updatefield.PlayerFieldXP, xp)
}

// Creature - представление NPC/монстра
type Creature struct {
	Unit
}

func (o *WorldObject) AsCreature() (Creature, bool) {
	if o.kind != KindCreature {
		return Creature{}, false
	}
	return Creature{Unit{o}}, true
}

func (c Creature) Faction() uint32  { return c.fields.Uint32(updatefield.CreatureFieldFaction) }
func (c Creature) NPCFlags() uint32 { return c.fields.Uint32(updatefield.CreatureFieldNPCFlags) }

func (c Creature) SetFaction(f uint32) {
	c.fields.SetUint32(updatefield.CreatureFieldFaction, f)
}

func (c Creature) SetNPCFlags(flags uint32) {
	c.fields.SetUint32(updatefield.CreatureFieldNPCFlags, flags)
}

// Gameobject - представление статичного объекта (двери, сундуки, ресурсы)
type Gameobject struct {
	*WorldObject
}

func (o *WorldObject) AsGameobject() (Gameobject, bool) {
	if o.kind != KindGameobject {
		return Gameobject{}, false
	}
	return Gameobject{o}, true
}

// Состояния gameobject
const (
	GameobjectStateReady uint32 = iota
	GameobjectStateActive
	GameobjectStateDisabled
)

func (g Gameobject) State() uint32     { return g.fields.Uint32(updatefield.GameobjectFieldState) }
func (g Gameobject) Flags() uint32     { return g.fields.Uint32(updatefield.GameobjectFieldFlags) }
func (g Gameobject) Rotation() float32 { return g.fields.Float(updatefield.GameobjectFieldRotation) }
func (g Gameobject) SetState(s uint32) { g.fields.SetUint32(updatefield.GameobjectFieldState, s) }
func (g Gameobject) SetFlags(f uint32) { g.fields.SetUint32(updatefield.GameobjectFieldFlags, f) }
func (g Gameobject) SetRotation(r float32) {
	g.fields.SetFloat(updatefield.GameobjectFieldRotation, r)
}
