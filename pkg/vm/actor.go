package vm

import (
	"log/slog"
	"math"

	"github.com/zurustar/scumm-et/pkg/costume"
	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// Moving flags.
const (
	moveNewLeg  = 1
	moveInLeg   = 2
	moveTurn    = 4
	moveLastLeg = 8
	moveFrozen  = 0x80
)

// Actor is one actor. Actors are allocated at startup and never freed.
type Actor struct {
	Number    int
	Name      string
	Costume   int
	Room      int
	X, Y      int
	Facing    int
	Elevation int
	Width     int
	ScaleX    int
	ScaleY    int
	Visible   bool

	TalkColor int
	TalkPosX  int
	TalkPosY  int

	InitFrame      uint8
	WalkFrame      uint8
	StandFrame     uint8
	TalkStartFrame uint8
	TalkStopFrame  uint8
	Frame          int

	Palette   [256]uint8
	Sounds    [32]int
	SpeedX    int
	SpeedY    int
	AnimSpeed int
	Layer     int

	IgnoreBoxes bool
	IgnoreTurns bool
	ShadowMode  int
	WalkScript  int
	TalkScript  int
	ForceClip   int
	DrawOffX    int
	DrawOffY    int
	Box         int
	Moving      int

	Cost costume.State

	decoder      costume.Decoder
	animProgress int
	needRedraw   bool

	walkDest    walkbox.Point
	walkDestBox int
	walkDestDir int
	walkNext    walkbox.Point
	walkCurBox  int
}

func (vm *VM) newActor(n int) *Actor {
	a := &Actor{Number: n}
	a.initActor(vm.cfg.Version)
	return a
}

// initActor puts an actor into its boot state.
func (a *Actor) initActor(version int) {
	a.Room = 0
	a.X, a.Y = 0, 0
	a.Facing = 180
	a.Elevation = 0
	a.Width = 24
	a.ScaleX, a.ScaleY = 0xFF, 0xFF
	a.Visible = false
	a.TalkColor = 15
	a.TalkPosX, a.TalkPosY = 0, -80
	a.InitFrame, a.WalkFrame, a.StandFrame = 1, 2, 3
	a.TalkStartFrame, a.TalkStopFrame = 4, 5
	a.SpeedX, a.SpeedY = 8, 2
	a.AnimSpeed = 0
	a.IgnoreBoxes = false
	a.IgnoreTurns = false
	a.ShadowMode = 0
	a.WalkScript, a.TalkScript = 0, 0
	a.ForceClip = 0
	a.Box = 0
	a.Moving = 0
	a.Layer = 0
	for i := range a.Palette {
		a.Palette[i] = uint8(i)
	}
	a.Sounds = [32]int{}
	a.Cost.Reset()
	if version >= 7 {
		a.ForceClip = 100
	}
}

func (vm *VM) initActors() {
	vm.actors = make([]*Actor, vm.cfg.NumActors)
	for i := range vm.actors {
		vm.actors[i] = vm.newActor(i)
	}
}

func (vm *VM) actorLog() *slog.Logger {
	return logger.Channel("actor")
}

// derefActor returns actor n or faults.
func (vm *VM) derefActor(n int, where string) *Actor {
	if n < 1 || n >= len(vm.actors) {
		vm.faultf(ErrorVariableRange, "%s: invalid actor %d", where, n)
	}
	return vm.actors[n]
}

// Actor returns actor n, nil when out of range.
func (vm *VM) Actor(n int) *Actor {
	if n < 1 || n >= len(vm.actors) {
		return nil
	}
	return vm.actors[n]
}

func (vm *VM) inCurrentRoom(a *Actor) bool {
	return a.Room == vm.roomID && a.Room != 0
}

// newDecoder picks the costume format for the bytecode version.
func (vm *VM) newDecoder() costume.Decoder {
	if vm.cfg.Version >= 7 {
		return costume.NewAKOS(vm.cfg.Version)
	}
	return costume.NewClassic(vm.cfg.Version, vm.cfg.Version <= 4)
}

// setActorCostume binds costume id to the actor. Costume 0 clears it.
func (vm *VM) setActorCostume(a *Actor, id int) {
	a.Costume = id
	a.Cost.Reset()
	a.decoder = nil
	if id == 0 {
		return
	}
	a.decoder = vm.costumeDecoder(id)
	if vm.inCurrentRoom(a) {
		vm.startAnimActor(a, int(a.InitFrame))
	}
}

func (vm *VM) costumeDecoder(id int) costume.Decoder {
	data, err := vm.res.GetCostume(id)
	if err != nil {
		vm.resourceFault("costume", id, err)
	}
	d := vm.newDecoder()
	if err := d.Load(id, data); err != nil {
		vm.resourceFault("costume", id, err)
	}
	return d
}

// startActorAnim handles special animation numbers then starts the frame.
// In v3-v6 the top values encode stop (0xFC-0xFF), set direction
// (0xF8-0xFB) and turn (0xF4-0xF7), with the direction in the low two bits.
func (vm *VM) startActorAnim(a *Actor, anim int) {
	var cmd, dir int
	if vm.cfg.Version >= 7 {
		if anim == 0xFF {
			anim = 2000
		}
		cmd = anim / 1000
		dir = anim % 1000
	} else {
		cmd = 0x3F - anim/4 + 2
		dir = costume.OldDirToFacing(anim % 4)
	}
	switch cmd {
	case 2:
		vm.startAnimActor(a, int(a.StandFrame))
		vm.stopActorMoving(a)
	case 3:
		a.Moving &^= moveTurn
		vm.setActorDirection(a, dir)
	case 4:
		vm.turnToDirection(a, dir)
	default:
		vm.startAnimActor(a, anim)
	}
}

// startAnimActor decodes frame f for every limb.
func (vm *VM) startAnimActor(a *Actor, f int) {
	if vm.cfg.Version >= 7 {
		switch f {
		case 1001:
			f = int(a.InitFrame)
		case 1002:
			f = int(a.WalkFrame)
		case 1003:
			f = int(a.StandFrame)
		case 1004:
			f = int(a.TalkStartFrame)
		case 1005:
			f = int(a.TalkStopFrame)
		}
	} else {
		switch f {
		case 0x38:
			f = int(a.InitFrame)
		case 0x39:
			f = int(a.WalkFrame)
		case 0x3A:
			f = int(a.StandFrame)
		case 0x3B:
			f = int(a.TalkStartFrame)
		case 0x3C:
			f = int(a.TalkStopFrame)
		}
	}
	a.Frame = f
	a.needRedraw = true
	if a.decoder == nil || (vm.cfg.Version < 7 && !vm.inCurrentRoom(a)) {
		return
	}
	a.animProgress = 0
	a.Cost.AnimCounter = 0
	if f == int(a.InitFrame) {
		a.Cost.Reset()
	}
	if err := a.decoder.DecodeData(&a.Cost, a.Facing, f, 0xFFFF); err != nil {
		vm.actorLog().Warn("Costume decode failed", "actor", a.Number, "costume", a.Costume, "frame", f, "error", err)
	}
}

func (vm *VM) setActorDirection(a *Actor, dir int) {
	dir = costume.NormalizeAngle(dir)
	if a.Facing == dir {
		return
	}
	a.Facing = dir
	if a.decoder == nil {
		return
	}
	// re-decode every limb that is showing something for the new facing
	var mask uint16
	for i := 0; i < costume.NumLimbs; i++ {
		if a.Cost.Curpos[i] != costume.NoCommand {
			mask |= 0x8000 >> uint(i)
		}
	}
	if mask != 0 {
		if err := a.decoder.DecodeData(&a.Cost, dir, a.Frame, mask); err != nil {
			vm.actorLog().Warn("Costume decode failed", "actor", a.Number, "error", err)
		}
	}
	a.needRedraw = true
}

func (vm *VM) turnToDirection(a *Actor, dir int) {
	if a.IgnoreTurns {
		vm.setActorDirection(a, dir)
		return
	}
	if a.Moving&moveTurn == 0 && a.Facing == costume.NormalizeAngle(dir) {
		return
	}
	a.Moving = moveTurn
	a.walkDestDir = costume.NormalizeAngle(dir)
}

// putActor places an actor in a room.
func (vm *VM) putActor(a *Actor, x, y, room int) {
	a.X, a.Y = x, y
	a.Room = room
	a.needRedraw = true
	if vm.engineVar(vm.cfg.Vars.Ego) == int32(a.Number) {
		vm.setEngineVar(vm.cfg.Vars.Room, int32(room))
	}
	if vm.inCurrentRoom(a) {
		if a.Moving != 0 {
			vm.stopActorMoving(a)
			vm.startAnimActor(a, int(a.StandFrame))
		}
		a.Visible = true
		a.Box = vm.boxAt(x, y)
	} else {
		a.Visible = false
	}
}

func (vm *VM) stopActorMoving(a *Actor) {
	a.Moving = 0
}

// boxAt returns the walkbox containing (x, y), or 0.
func (vm *VM) boxAt(x, y int) int {
	if vm.room == nil {
		return 0
	}
	p := walkbox.Point{X: x, Y: y}
	for i := len(vm.room.Boxes) - 1; i >= 0; i-- {
		b := vm.room.Boxes[i]
		if b.Invisible() {
			continue
		}
		if b.Contains(p) {
			return i
		}
	}
	return 0
}

// adjustXY moves a point onto the nearest walkable box.
func (vm *VM) adjustXY(x, y int) (walkbox.Point, int) {
	p := walkbox.Point{X: x, Y: y}
	if vm.room == nil || len(vm.room.Boxes) == 0 {
		return p, walkbox.InvalidBox
	}
	best, bestBox, bestDist := p, walkbox.InvalidBox, math.MaxInt
	for i, b := range vm.room.Boxes {
		if b.Invisible() || b.Flags&walkbox.FlagLocked != 0 {
			continue
		}
		if b.Contains(p) {
			return p, i
		}
		c := b.ClosestPoint(p)
		d := (c.X-x)*(c.X-x) + (c.Y-y)*(c.Y-y)
		if d < bestDist {
			best, bestBox, bestDist = c, i, d
		}
	}
	return best, bestBox
}

// startWalk sends the actor towards (x, y); dir is the facing on arrival,
// -1 to keep the walking direction.
func (vm *VM) startWalk(a *Actor, x, y, dir int) {
	if !vm.inCurrentRoom(a) {
		a.X, a.Y = x, y
		return
	}
	dest, box := walkbox.Point{X: x, Y: y}, walkbox.InvalidBox
	if !a.IgnoreBoxes {
		dest, box = vm.adjustXY(x, y)
	}
	if dest.X == a.X && dest.Y == a.Y {
		if dir >= 0 {
			vm.turnToDirection(a, dir)
		}
		return
	}
	a.walkDest = dest
	a.walkDestBox = box
	a.walkDestDir = dir
	a.walkCurBox = a.Box
	a.Moving = moveNewLeg
	vm.startAnimActor(a, int(a.WalkFrame))
	vm.actorLog().Debug("Walk started", "actor", a.Number, "x", dest.X, "y", dest.Y, "box", box)
}

// walkActor advances a walking or turning actor by one tick.
func (vm *VM) walkActor(a *Actor) {
	if a.Moving == 0 || a.Moving&moveFrozen != 0 {
		return
	}
	if a.Moving&moveTurn != 0 {
		vm.setActorDirection(a, a.walkDestDir)
		a.Moving = 0
		return
	}

	if a.Moving&moveNewLeg != 0 {
		a.walkNext = vm.nextWaypoint(a)
		a.Moving = moveInLeg
	}

	if vm.stepTowards(a, a.walkNext) {
		if a.walkNext == a.walkDest {
			a.Moving = 0
			a.Box = a.walkDestBox
			if a.Box < 0 {
				a.Box = 0
			}
			vm.startAnimActor(a, int(a.StandFrame))
			if a.walkDestDir >= 0 {
				vm.setActorDirection(a, a.walkDestDir)
			}
			return
		}
		a.walkCurBox = vm.boxAt(a.X, a.Y)
		a.Moving = moveNewLeg
	}
}

// nextWaypoint picks the next point on the route, crossing one box at a
// time through the box matrix.
func (vm *VM) nextWaypoint(a *Actor) walkbox.Point {
	if a.IgnoreBoxes || vm.matrix == nil || a.walkDestBox < 0 {
		return a.walkDest
	}
	cur := a.walkCurBox
	if cur == a.walkDestBox {
		return a.walkDest
	}
	next := vm.matrix.NextBox(cur, a.walkDestBox)
	if next == walkbox.InvalidBox || next >= len(vm.room.Boxes) {
		vm.actorLog().Debug("No route", "actor", a.Number, "from", cur, "to", a.walkDestBox)
		a.walkDest = walkbox.Point{X: a.X, Y: a.Y}
		a.walkDestBox = cur
		return a.walkDest
	}
	p := vm.room.Boxes[next].ClosestPoint(walkbox.Point{X: a.X, Y: a.Y})
	if p.X == a.X && p.Y == a.Y {
		a.walkCurBox = next
		return vm.nextWaypoint(a)
	}
	return p
}

// stepTowards moves the actor one tick towards p and reports arrival.
func (vm *VM) stepTowards(a *Actor, p walkbox.Point) bool {
	dx, dy := p.X-a.X, p.Y-a.Y
	if dx == 0 && dy == 0 {
		return true
	}
	sx, sy := max(a.SpeedX, 1), max(a.SpeedY, 1)
	steps := max(abs(dx)/sx, abs(dy)/sy)
	if steps <= 1 {
		a.X, a.Y = p.X, p.Y
	} else {
		a.X += dx / steps
		a.Y += dy / steps
	}
	facing := int(math.Round(math.Atan2(float64(dx), float64(-dy)) * 180 / math.Pi))
	if f := costume.NormalizeAngle(facing); costume.OldDirFromFacing(f) != costume.OldDirFromFacing(a.Facing) {
		vm.setActorDirection(a, f)
	} else {
		a.Facing = f
	}
	a.needRedraw = true
	return a.X == p.X && a.Y == p.Y
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// animateActor advances an actor's costume and applies queued commands.
func (vm *VM) animateActor(a *Actor) {
	if a.decoder == nil || !vm.inCurrentRoom(a) {
		return
	}
	a.animProgress++
	if a.animProgress <= a.AnimSpeed {
		return
	}
	a.animProgress = 0
	changed, err := a.decoder.IncreaseAnims(&a.Cost)
	if err != nil {
		vm.actorLog().Warn("Costume step failed", "actor", a.Number, "costume", a.Costume, "error", err)
		return
	}
	if changed > 0 {
		a.needRedraw = true
	}
	for _, c := range a.Cost.Drain() {
		vm.applyCostumeCommand(a, c)
	}
}

// applyCostumeCommand carries out a side effect queued by a decoder.
func (vm *VM) applyCostumeCommand(a *Actor, c costume.Command) {
	target := a
	if c.Actor != 0 {
		target = vm.Actor(c.Actor)
		if target == nil {
			vm.actorLog().Debug("Costume command for missing actor", "actor", c.Actor, "kind", int(c.Kind))
			return
		}
	}
	switch c.Kind {
	case costume.CmdPlaySound:
		if c.A >= 0 && c.A < len(target.Sounds) && target.Sounds[c.A] != 0 {
			vm.sound.AddSoundToQueue(target.Sounds[c.A])
		}
	case costume.CmdStartAnim:
		vm.startActorAnim(target, c.A)
	case costume.CmdSetVar:
		if c.A >= 0 && c.A < costume.NumAnimVars {
			target.Cost.AnimVars[c.A] = int32(c.B)
		}
	case costume.CmdHideActor:
		target.Visible = false
		target.needRedraw = true
	case costume.CmdSetClipping:
		target.ForceClip = c.A
	case costume.CmdDrawOffset:
		target.DrawOffX, target.DrawOffY = c.A, c.B
	}
}

// actorScale updates the actor's scale from its box.
func (vm *VM) actorScale(a *Actor) {
	if vm.room == nil || a.IgnoreBoxes || a.Box < 0 || a.Box >= len(vm.room.Boxes) {
		return
	}
	s := walkbox.BoxScale(vm.room.Boxes[a.Box], vm.room.Scales, a.Y)
	a.ScaleX, a.ScaleY = s, s
}

// actorFromPos returns the topmost visible actor at (x, y), or 0.
func (vm *VM) actorFromPos(x, y int) int {
	for i := len(vm.actors) - 1; i >= 1; i-- {
		a := vm.actors[i]
		if !vm.inCurrentRoom(a) || !a.Visible {
			continue
		}
		if x >= a.X-a.Width/2 && x <= a.X+a.Width/2 && y <= a.Y && y >= a.Y-80 {
			return i
		}
	}
	return 0
}

// actorDistance is the larger of the axis distances, as scripts expect.
func actorDistance(x1, y1, x2, y2 int) int {
	return max(abs(x1-x2), abs(y1-y2))
}

// faceTowards turns a towards (x, y).
func (vm *VM) faceTowards(a *Actor, x, y int) {
	dir := 90
	if x < a.X {
		dir = 270
	}
	if abs(x-a.X) < abs(y-a.Y)/2 {
		dir = 180
		if y < a.Y {
			dir = 0
		}
	}
	vm.turnToDirection(a, dir)
}

// updateActors walks and animates every actor in the room.
func (vm *VM) updateActors() {
	for _, a := range vm.actors[1:] {
		if !vm.inCurrentRoom(a) {
			continue
		}
		vm.walkActor(a)
		vm.actorScale(a)
		vm.animateActor(a)
	}
}

// hideActorsNotInRoom hides actors left behind by a room change.
func (vm *VM) hideActorsNotInRoom() {
	for _, a := range vm.actors[1:] {
		if !vm.inCurrentRoom(a) {
			a.Visible = false
		}
	}
}

// ActorState is a read-only view of an actor for tools and tests.
type ActorState struct {
	Number  int
	Costume int
	Room    int
	X, Y    int
	Facing  int
	Frame   int
	Moving  bool
	Visible bool
}

// Actors returns the actors that are in a room.
func (vm *VM) Actors() []ActorState {
	var out []ActorState
	for _, a := range vm.actors[1:] {
		if a.Room == 0 {
			continue
		}
		out = append(out, ActorState{
			Number: a.Number, Costume: a.Costume, Room: a.Room,
			X: a.X, Y: a.Y, Facing: a.Facing, Frame: a.Frame,
			Moving: a.Moving != 0, Visible: a.Visible,
		})
	}
	return out
}
