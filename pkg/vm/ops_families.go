package vm

// The stack dialects share their sub-command families but number them
// differently. Each dialect maps its sub-op bytes onto these kinds.

type actorSub uint8

const (
	actorCostume actorSub = iota + 1
	actorWalkSpeed
	actorSound
	actorWalkAnim
	actorTalkAnim
	actorStandAnim
	actorAnimation
	actorInit
	actorElevation
	actorDefaultAnims
	actorPalette
	actorTalkColor
	actorName
	actorInitAnim
	actorWidth
	actorScale
	actorNeverZClip
	actorAlwaysZClip
	actorIgnoreBoxes
	actorFollowBoxes
	actorAnimSpeed
	actorShadow
	actorTextOffset
	actorCurrent
	actorAnimVar
	actorIgnoreTurnsOn
	actorIgnoreTurnsOff
	actorNew
	actorLayer
	actorWalkScript
	actorStop
	actorDirection
	actorTurn
	actorFreeze
	actorUnfreeze
	actorTalkScript
	actorVolume
	actorFrequency
	actorPan
)

var actorSubsV6 = map[byte]actorSub{
	76: actorCostume, 77: actorWalkSpeed, 78: actorSound, 79: actorWalkAnim,
	80: actorTalkAnim, 81: actorStandAnim, 82: actorAnimation, 83: actorInit,
	84: actorElevation, 85: actorDefaultAnims, 86: actorPalette, 87: actorTalkColor,
	88: actorName, 89: actorInitAnim, 91: actorWidth, 92: actorScale,
	93: actorNeverZClip, 94: actorAlwaysZClip, 95: actorIgnoreBoxes, 96: actorFollowBoxes,
	97: actorAnimSpeed, 98: actorShadow, 99: actorTextOffset, 197: actorCurrent,
	198: actorAnimVar, 215: actorIgnoreTurnsOn, 216: actorIgnoreTurnsOff, 217: actorNew,
	227: actorLayer, 228: actorWalkScript, 229: actorStop, 230: actorDirection,
	231: actorTurn, 233: actorFreeze, 234: actorUnfreeze, 235: actorTalkScript,
}

var actorSubsV8 = map[byte]actorSub{
	0x64: actorCostume, 0x65: actorWalkSpeed, 0x67: actorDefaultAnims, 0x68: actorInitAnim,
	0x69: actorTalkAnim, 0x6A: actorWalkAnim, 0x6B: actorStandAnim, 0x6C: actorAnimSpeed,
	0x6D: actorInit, 0x6E: actorElevation, 0x6F: actorPalette, 0x70: actorTalkColor,
	0x71: actorName, 0x72: actorWidth, 0x73: actorScale, 0x74: actorNeverZClip,
	0x75: actorAlwaysZClip, 0x76: actorIgnoreBoxes, 0x77: actorFollowBoxes, 0x78: actorShadow,
	0x79: actorTextOffset, 0x7A: actorCurrent, 0x7B: actorAnimVar, 0x7C: actorIgnoreTurnsOn,
	0x7D: actorIgnoreTurnsOff, 0x7E: actorNew, 0x7F: actorLayer, 0x80: actorStop,
	0x81: actorDirection, 0x82: actorTurn, 0x83: actorWalkScript, 0x84: actorTalkScript,
	0x85: actorFreeze, 0x86: actorUnfreeze, 0x87: actorVolume, 0x88: actorFrequency,
	0x89: actorPan,
}

// actorOpsWith builds the actorOps handler for a sub-op numbering. The
// actor is the one chosen by the last "current actor" sub-command.
func actorOpsWith(subs map[byte]actorSub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("actorOps", int(sub))
		}
		if k == actorCurrent {
			vm.curActor = int(vm.pop())
			return
		}
		a := vm.derefActor(vm.curActor, "actorOps")
		pop := func() int { return int(vm.pop()) }
		switch k {
		case actorCostume:
			vm.setActorCostume(a, pop())
		case actorWalkSpeed:
			a.SpeedY = pop()
			a.SpeedX = pop()
		case actorSound:
			for i, s := range vm.popList() {
				if i < len(a.Sounds) {
					a.Sounds[i] = int(s)
				}
			}
		case actorWalkAnim:
			a.WalkFrame = uint8(pop())
		case actorTalkAnim:
			a.TalkStopFrame = uint8(pop())
			a.TalkStartFrame = uint8(pop())
		case actorStandAnim:
			a.StandFrame = uint8(pop())
		case actorAnimation:
			pop()
			pop()
			pop()
		case actorInit, actorNew:
			a.initActor(vm.cfg.Version)
		case actorElevation:
			a.Elevation = pop()
			a.needRedraw = true
		case actorDefaultAnims:
			a.InitFrame, a.WalkFrame, a.StandFrame = 1, 2, 3
			a.TalkStartFrame, a.TalkStopFrame = 4, 5
		case actorPalette:
			j, i := pop(), pop()
			if i >= 0 && i < len(a.Palette) {
				a.Palette[i] = uint8(j)
			}
			a.needRedraw = true
		case actorTalkColor:
			a.TalkColor = pop()
		case actorName:
			a.Name = string(vm.fetchMessage())
		case actorInitAnim:
			a.InitFrame = uint8(pop())
		case actorWidth:
			a.Width = pop()
		case actorScale:
			s := pop()
			a.ScaleX, a.ScaleY = s, s
			a.needRedraw = true
		case actorNeverZClip:
			a.ForceClip = 0
		case actorAlwaysZClip:
			a.ForceClip = pop()
			if vm.cfg.Version >= 8 && a.ForceClip == 255 {
				a.ForceClip = 100
			}
		case actorIgnoreBoxes, actorFollowBoxes:
			a.IgnoreBoxes = k == actorIgnoreBoxes
			a.ForceClip = 0
			if vm.cfg.Version >= 7 {
				a.ForceClip = 100
			}
			if vm.inCurrentRoom(a) {
				vm.putActor(a, a.X, a.Y, a.Room)
			}
		case actorAnimSpeed:
			a.AnimSpeed = pop()
			a.animProgress = 0
		case actorShadow:
			a.ShadowMode = pop()
		case actorTextOffset:
			a.TalkPosY = pop()
			a.TalkPosX = pop()
		case actorAnimVar:
			v, n := int32(pop()), pop()
			if n >= 0 && n < len(a.Cost.AnimVars) {
				a.Cost.AnimVars[n] = v
			}
		case actorIgnoreTurnsOn, actorIgnoreTurnsOff:
			a.IgnoreTurns = k == actorIgnoreTurnsOn
		case actorLayer:
			a.Layer = pop()
		case actorWalkScript:
			a.WalkScript = pop()
		case actorTalkScript:
			a.TalkScript = pop()
		case actorStop:
			vm.stopActorMoving(a)
			vm.startAnimActor(a, int(a.StandFrame))
		case actorDirection:
			a.Moving &^= moveTurn
			vm.setActorDirection(a, pop())
		case actorTurn:
			vm.turnToDirection(a, pop())
		case actorFreeze:
			a.Moving |= moveFrozen
		case actorUnfreeze:
			a.Moving &^= moveFrozen
		case actorVolume, actorFrequency, actorPan:
			vm.actorLog().Debug("Actor voice setting", "actor", a.Number, "sub", sub, "value", pop())
		}
	}
}

type verbSub uint8

const (
	verbCurrent verbSub = iota + 1
	verbImage
	verbName
	verbColor
	verbHiColor
	verbAt
	verbOnSub
	verbOffSub
	verbDelete
	verbDeleteCurrent
	verbNew
	verbDimColor
	verbDimSub
	verbKey
	verbCenter
	verbNameStr
	verbImageInRoom
	verbBkColor
	verbCharset
	verbLineSpacing
	verbRedraw
)

var verbSubsV6 = map[byte]verbSub{
	124: verbImage, 125: verbName, 126: verbColor, 127: verbHiColor, 128: verbAt,
	129: verbOnSub, 130: verbOffSub, 131: verbDelete, 132: verbNew, 133: verbDimColor,
	134: verbDimSub, 135: verbKey, 136: verbCenter, 137: verbNameStr, 139: verbImageInRoom,
	140: verbBkColor, 196: verbCurrent, 255: verbRedraw,
}

var verbSubsV8 = map[byte]verbSub{
	0x96: verbCurrent, 0x97: verbNew, 0x98: verbDeleteCurrent, 0x99: verbName,
	0x9A: verbAt, 0x9B: verbOnSub, 0x9C: verbOffSub, 0x9D: verbColor, 0x9E: verbHiColor,
	0xA0: verbDimColor, 0xA1: verbDimSub, 0xA2: verbKey, 0xA3: verbImageInRoom,
	0xA4: verbNameStr, 0xA5: verbCenter, 0xA6: verbCharset, 0xA7: verbLineSpacing,
}

func verbOpsWith(subs map[byte]verbSub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("verbOps", int(sub))
		}
		if k == verbCurrent {
			vm.curVerb = int(vm.pop())
			vm.curVerbSlot = vm.verbSlot(vm.curVerb, 0)
			return
		}
		slot := vm.curVerbSlot
		v := &vm.verbs[slot]
		switch k {
		case verbImage:
			img := int(vm.pop())
			if slot != 0 {
				v.Image = img
			}
		case verbName:
			v.Name = append([]byte(nil), vm.fetchMessage()...)
			v.Image = 0
		case verbColor:
			v.Color = int(vm.pop())
		case verbHiColor:
			v.HiColor = int(vm.pop())
		case verbAt:
			v.Y = int(vm.pop())
			v.X = int(vm.pop())
		case verbOnSub:
			v.Mode = verbOn
		case verbOffSub:
			v.Mode = verbOff
		case verbDelete:
			vm.killVerb(vm.verbSlot(int(vm.pop()), 0))
		case verbDeleteCurrent:
			vm.killVerb(slot)
		case verbNew:
			vm.curVerbSlot = vm.newVerb(vm.curVerb)
		case verbDimColor:
			v.DimColor = int(vm.pop())
		case verbDimSub:
			v.Mode = verbDim
		case verbKey:
			v.Key = int(vm.pop())
		case verbCenter:
			v.Center = true
		case verbNameStr:
			var name []byte
			if id := int(vm.pop()); id != 0 {
				if a := vm.arrays[id]; a != nil {
					name = a.Bytes()
				}
			}
			v.Name = name
			v.Image = 0
		case verbImageInRoom:
			room, img := vm.pop(), int(vm.pop())
			if slot != 0 && img != v.Image {
				v.Image = img
				vm.log.Debug("Verb image", "verb", v.ID, "object", img, "room", room)
			}
		case verbBkColor:
			v.BkColor = int(vm.pop())
		case verbCharset:
			v.Charset = int(vm.pop())
		case verbLineSpacing:
			vm.log.Debug("Verb line spacing", "verb", v.ID, "spacing", vm.pop())
		case verbRedraw:
		}
		if vm.curVerbSlot != 0 {
			vm.display.MarkDirty(vm.verbs[vm.curVerbSlot].rect())
		}
	}
}

type printSub uint8

const (
	printBegin printSub = iota + 1
	printEnd
	printAt
	printColor
	printClipped
	printCenter
	printLeft
	printOverhead
	printMumble
	printText
	printCharset
	printWrap
)

var printSubsV6 = map[byte]printSub{
	65: printAt, 66: printColor, 67: printClipped, 69: printCenter, 71: printLeft,
	72: printOverhead, 74: printMumble, 75: printText, 0xFE: printBegin, 0xFF: printEnd,
}

var printSubsV8 = map[byte]printSub{
	0xC8: printBegin, 0xC9: printEnd, 0xCA: printAt, 0xCB: printColor, 0xCC: printCenter,
	0xCD: printCharset, 0xCE: printLeft, 0xCF: printOverhead, 0xD0: printMumble,
	0xD1: printText, 0xD2: printWrap,
}

// printOpsWith builds a print handler for one text slot. actor, when set,
// picks the speaker as the slot is opened.
func printOpsWith(slot int, actor func(vm *VM) int, subs map[byte]printSub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("print", int(sub))
		}
		ts := &vm.textDef.Slots[slot]
		switch k {
		case printBegin:
			ts.loadDefault()
			if actor != nil {
				vm.printActor = actor(vm)
			}
		case printEnd:
			ts.saveDefault()
		case printAt:
			ts.Y = int(vm.pop())
			ts.X = int(vm.pop())
			ts.Overhead = false
		case printColor:
			ts.Color = int(vm.pop())
		case printClipped:
			ts.Right = int(vm.pop())
		case printCharset:
			ts.Charset = int(vm.pop())
		case printCenter:
			ts.Center = true
			ts.Overhead = false
		case printLeft:
			ts.Center = false
			ts.Overhead = false
		case printOverhead:
			ts.Overhead = true
			ts.NoTalkAnim = false
		case printMumble:
			ts.NoTalkAnim = true
		case printWrap:
			ts.Wrapping = true
			ts.Overhead = false
		case printText:
			vm.printString(slot, vm.fetchMessage())
		}
	}
}

type waitSub uint8

const (
	waitActor waitSub = iota + 1
	waitMessage
	waitCamera
	waitSentence
	waitAnimation
	waitTurn
)

var waitSubsV6 = map[byte]waitSub{
	168: waitActor, 169: waitMessage, 170: waitCamera, 171: waitSentence,
	226: waitAnimation, 232: waitTurn,
}

var waitSubsV8 = map[byte]waitSub{
	0x1E: waitActor, 0x1F: waitMessage, 0x20: waitCamera, 0x21: waitSentence,
	0x22: waitAnimation, 0x23: waitTurn,
}

// waitOpsWith builds the wait handler. While the condition holds the
// script yields: actor waits jump by their inline offset back to the
// code that pushes the actor, the others re-run the instruction.
func waitOpsWith(subs map[byte]waitSub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		start := vm.pc - 1
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("wait", int(sub))
		}
		switch k {
		case waitActor, waitAnimation, waitTurn:
			off := vm.fetchWordSigned()
			a := vm.derefActor(int(vm.pop()), "wait")
			var busy bool
			switch k {
			case waitActor:
				busy = a.Moving != 0
			case waitAnimation:
				busy = vm.inCurrentRoom(a) && a.needRedraw
			case waitTurn:
				busy = vm.inCurrentRoom(a) && a.Moving&moveTurn != 0
			}
			if busy {
				vm.jumpRelative(off)
				vm.breakHere()
			}
			return
		case waitMessage:
			if vm.engineVar(vm.cfg.Vars.HaveMsg) == 0 {
				return
			}
		case waitCamera:
			if vm.cameraSettled() {
				return
			}
		case waitSentence:
			if !vm.waitingForSentence() {
				return
			}
		}
		vm.pc = start
		vm.breakHere()
	}
}

type dimSub uint8

const (
	dimInt dimSub = iota + 1
	dimBit
	dimNibble
	dimByte
	dimString
	dimDword
	dimNuke
)

var dimSubsV6 = map[byte]dimSub{
	199: dimInt, 200: dimBit, 201: dimNibble, 202: dimByte, 203: dimString, 204: dimNuke,
}

var dimSubsV8 = map[byte]dimSub{
	0x0A: dimDword, 0x0B: dimString, 0x0C: dimNuke,
}

var dimTypes = map[dimSub]ArrayType{
	dimInt: ArrayInt, dimBit: ArrayBit, dimNibble: ArrayNibble, dimByte: ArrayByte,
	dimString: ArrayString, dimDword: ArrayDword,
}

// dimOpsWith builds dimArray, or dim2dimArray when twoDim is set.
func dimOpsWith(subs map[byte]dimSub, twoDim bool) func(vm *VM, o *Operands) {
	name := "dimArray"
	if twoDim {
		name = "dim2dimArray"
	}
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported(name, int(sub))
		}
		v := vm.fetchVarRef()
		if k == dimNuke {
			vm.nukeArray(v)
			return
		}
		dim1 := int(vm.pop())
		dim2 := 0
		if twoDim {
			dim2 = int(vm.pop())
		}
		vm.defineArray(v, dimTypes[k], dim2, dim1)
	}
}

type arraySub uint8

const (
	arrayString arraySub = iota + 1
	arrayIntCount
	arrayIntList
	array2DimList
)

var arraySubsV6 = map[byte]arraySub{205: arrayString, 208: arrayIntCount, 212: array2DimList}

var arraySubsV8 = map[byte]arraySub{0x14: arrayString, 0x15: arrayIntList, 0x16: array2DimList}

func arrayOpsWith(subs map[byte]arraySub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("arrayOps", int(sub))
		}
		v := vm.fetchVarRef()
		switch k {
		case arrayString:
			off := int(vm.pop())
			msg := vm.fetchMessage()
			vm.defineArray(v, ArrayString, 0, off+len(msg)+1)
			for i, b := range msg {
				vm.writeArray(v, 0, off+i, int32(b))
			}
		case arrayIntCount:
			base, n := int(vm.pop()), int(vm.pop())
			if vm.readVar(v) == 0 {
				vm.defineArray(v, ArrayInt, 0, base+n)
			}
			for n--; n >= 0; n-- {
				vm.writeArray(v, 0, base+n, vm.pop())
			}
		case arrayIntList, array2DimList:
			base := int(vm.pop())
			list := vm.popList()
			vm.mustArray(v)
			idx := 0
			if k == array2DimList {
				idx = int(vm.pop())
			}
			for i := len(list) - 1; i >= 0; i-- {
				vm.writeArray(v, idx, base+i, list[i])
			}
		}
	}
}

type cursorSub uint8

const (
	cursorOn cursorSub = iota + 1
	cursorOff
	cursorSoftOn
	cursorSoftOff
	userPutOn
	userPutOff
	userPutSoftOn
	userPutSoftOff
	cursorImage
	cursorHotspot
	cursorCharset
	cursorColors
	cursorTransparent
	cursorPut
)

var cursorSubsV6 = map[byte]cursorSub{
	0x90: cursorOn, 0x91: cursorOff, 0x92: userPutOn, 0x93: userPutOff,
	0x94: cursorSoftOn, 0x95: cursorSoftOff, 0x96: userPutSoftOn, 0x97: userPutSoftOff,
	0x99: cursorImage, 0x9A: cursorHotspot, 0x9C: cursorCharset, 0x9D: cursorColors,
	0xD6: cursorTransparent,
}

var cursorSubsV8 = map[byte]cursorSub{
	0xDC: cursorOn, 0xDD: cursorOff, 0xDE: cursorSoftOn, 0xDF: cursorSoftOff,
	0xE0: userPutOn, 0xE1: userPutOff, 0xE2: userPutSoftOn, 0xE3: userPutSoftOff,
	0xE4: cursorImage, 0xE5: cursorHotspot, 0xE6: cursorTransparent, 0xE7: cursorCharset,
	0xE8: cursorColors, 0xE9: cursorPut,
}

func cursorOpsWith(subs map[byte]cursorSub) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		k, ok := subs[sub]
		if !ok {
			vm.unsupported("cursorCommand", int(sub))
		}
		switch k {
		case cursorOn:
			vm.cursorState = 1
		case cursorOff:
			vm.cursorState = 0
		case userPutOn:
			vm.userPut = 1
		case userPutOff:
			vm.userPut = 0
		case cursorSoftOn:
			vm.cursorState++
		case cursorSoftOff:
			vm.cursorState--
		case userPutSoftOn:
			vm.userPut++
		case userPutSoftOff:
			vm.userPut--
		case cursorImage:
			// v7 finds the object's room in the index
			if vm.cfg.Version != 7 {
				vm.pop()
			}
			vm.log.Debug("Cursor image", "object", vm.pop())
		case cursorHotspot:
			y, x := vm.pop(), vm.pop()
			vm.log.Debug("Cursor hotspot", "x", x, "y", y)
		case cursorCharset:
			vm.textDef.Charset = int(vm.pop())
		case cursorColors:
			vm.popList()
		case cursorTransparent:
			vm.pop()
		case cursorPut:
			y, x := vm.pop(), vm.pop()
			vm.SetMouse(int(x), int(y))
		}
		vm.publishCursor()
	}
}

// system sub-commands of the stack dialects.
const (
	systemRestart = iota + 1
	systemPause
	systemQuit
)

var systemSubsV6 = map[byte]int{158: systemRestart, 159: systemPause, 160: systemQuit}

var systemSubsV8 = map[byte]int{0x28: systemRestart, 0x29: systemQuit}

func systemOpsWith(subs map[byte]int) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		sub := vm.fetchByte()
		switch subs[sub] {
		case systemRestart:
			vm.restart()
		case systemPause:
			vm.log.Info("Game paused by script")
		case systemQuit:
			vm.quit = true
			vm.breakHere()
		default:
			vm.unsupported("systemOps", int(sub))
		}
	}
}

// resourceSubsV6 and resourceSubsV8 map onto the v5 resource sub-ops
// resourceRoutine understands.
var resourceSubsV6 = func() map[byte]int {
	m := make(map[byte]int)
	for sub := 100; sub <= 119; sub++ {
		m[byte(sub)] = sub - 99
	}
	return m
}()

var resourceSubsV8 = map[byte]int{
	0x3C: 18, 0x3D: 3, 0x3E: 20, 0x3F: 4, 0x40: 1, 0x41: 2,
	0x42: 11, 0x43: 12, 0x44: 9, 0x45: 10,
	0x46: 15, 0x47: 16, 0x48: 13, 0x49: 14,
	0x4A: 7, 0x4B: 8, 0x4C: 5, 0x4D: 6,
}

func resourceOpsWith(subs map[byte]int) func(vm *VM, o *Operands) {
	return func(vm *VM, o *Operands) {
		raw := vm.fetchByte()
		sub, ok := subs[raw]
		if !ok {
			vm.unsupported("resourceRoutines", int(raw))
		}
		var id int
		if sub != 17 {
			id = int(vm.pop())
		}
		vm.resourceRoutine(sub, id)
	}
}
