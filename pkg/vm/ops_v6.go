package vm

import (
	"image"

	"github.com/zurustar/scumm-et/pkg/walkbox"
)

// opcodesV6 is the stack dialect: operands are pushed before the
// instruction and popped by it, last declared on top.
var opcodesV6 [256]*opcode

// opcodesV7 is v6 with the v7 changes patched in.
var opcodesV7 [256]*opcode

func init() {
	initV6(&opcodesV6)
	opcodesV7 = opcodesV6
	initV7(&opcodesV7)
	initV8(&opcodesV8)
}

func initV6(t *[256]*opcode) {
	t[0x00] = op("pushByte", func(vm *VM, o *Operands) { vm.push(o.V(0)) }, ArgByte)
	t[0x01] = op("pushWord", func(vm *VM, o *Operands) { vm.push(o.V(0)) }, ArgWord)
	t[0x02] = op("pushByteVar", func(vm *VM, o *Operands) { vm.push(vm.readVar(o.I(0))) }, ArgByte)
	t[0x03] = op("pushWordVar", func(vm *VM, o *Operands) { vm.push(vm.readVar(o.I(0))) }, ArgVarRef)

	arrayRead := func(vm *VM, o *Operands) { vm.push(vm.readArray(o.I(0), 0, o.I(1))) }
	t[0x06] = op("byteArrayRead", arrayRead, ArgByte, ArgPop)
	t[0x07] = op("wordArrayRead", arrayRead, ArgVarRef, ArgPop)
	indexedRead := func(vm *VM, o *Operands) { vm.push(vm.readArray(o.I(0), o.I(1), o.I(2))) }
	t[0x0A] = op("byteArrayIndexedRead", indexedRead, ArgByte, ArgPop, ArgPop)
	t[0x0B] = op("wordArrayIndexedRead", indexedRead, ArgVarRef, ArgPop, ArgPop)

	t[0x0C] = op("dup", func(vm *VM, o *Operands) {
		vm.push(o.V(0))
		vm.push(o.V(0))
	}, ArgPop)
	t[0x0D] = op("not", func(vm *VM, o *Operands) { vm.push(boolVal(o.V(0) == 0)) }, ArgPop)

	// binary operators see the deeper value first
	binop := func(name string, f func(a, b int32) int32) *opcode {
		return op(name, func(vm *VM, o *Operands) { vm.push(f(o.V(0), o.V(1))) }, ArgPop, ArgPop)
	}
	t[0x0E] = binop("eq", func(a, b int32) int32 { return boolVal(a == b) })
	t[0x0F] = binop("neq", func(a, b int32) int32 { return boolVal(a != b) })
	t[0x10] = binop("gt", func(a, b int32) int32 { return boolVal(a > b) })
	t[0x11] = binop("lt", func(a, b int32) int32 { return boolVal(a < b) })
	t[0x12] = binop("le", func(a, b int32) int32 { return boolVal(a <= b) })
	t[0x13] = binop("ge", func(a, b int32) int32 { return boolVal(a >= b) })
	t[0x14] = binop("add", func(a, b int32) int32 { return a + b })
	t[0x15] = binop("sub", func(a, b int32) int32 { return a - b })
	t[0x16] = binop("mul", func(a, b int32) int32 { return a * b })
	t[0x17] = op("div", func(vm *VM, o *Operands) {
		if o.V(1) == 0 {
			vm.fault(NewDivisionByZeroError())
		}
		vm.push(o.V(0) / o.V(1))
	}, ArgPop, ArgPop)
	t[0x18] = binop("land", func(a, b int32) int32 { return boolVal(a != 0 && b != 0) })
	t[0x19] = binop("lor", func(a, b int32) int32 { return boolVal(a != 0 || b != 0) })
	t[0x1A] = op("pop", func(vm *VM, o *Operands) {}, ArgPop)
	t[0xA7] = t[0x1A]
	t[0xD6] = binop("band", func(a, b int32) int32 { return a & b })
	t[0xD7] = binop("bor", func(a, b int32) int32 { return a | b })
	t[0xC4] = op("abs", func(vm *VM, o *Operands) { vm.push(int32(abs(o.I(0)))) }, ArgPop)

	writeVar := func(vm *VM, o *Operands) { vm.writeVar(o.I(0), o.V(1)) }
	t[0x42] = op("writeByteVar", writeVar, ArgByte, ArgPop)
	t[0x43] = op("writeWordVar", writeVar, ArgVarRef, ArgPop)
	arrayWrite := func(vm *VM, o *Operands) { vm.writeArray(o.I(0), 0, o.I(1), o.V(2)) }
	t[0x46] = op("byteArrayWrite", arrayWrite, ArgByte, ArgPop, ArgPop)
	t[0x47] = op("wordArrayWrite", arrayWrite, ArgVarRef, ArgPop, ArgPop)
	indexedWrite := func(vm *VM, o *Operands) { vm.writeArray(o.I(0), o.I(1), o.I(2), o.V(3)) }
	t[0x4A] = op("byteArrayIndexedWrite", indexedWrite, ArgByte, ArgPop, ArgPop, ArgPop)
	t[0x4B] = op("wordArrayIndexedWrite", indexedWrite, ArgVarRef, ArgPop, ArgPop, ArgPop)

	varAdd := func(d int32) func(vm *VM, o *Operands) {
		return func(vm *VM, o *Operands) { vm.writeVar(o.I(0), vm.readVar(o.I(0))+d) }
	}
	t[0x4E] = op("byteVarInc", varAdd(1), ArgByte)
	t[0x4F] = op("wordVarInc", varAdd(1), ArgVarRef)
	t[0x56] = op("byteVarDec", varAdd(-1), ArgByte)
	t[0x57] = op("wordVarDec", varAdd(-1), ArgVarRef)
	arrayAdd := func(d int32) func(vm *VM, o *Operands) {
		return func(vm *VM, o *Operands) {
			v, base := o.I(0), o.I(1)
			vm.writeArray(v, 0, base, vm.readArray(v, 0, base)+d)
		}
	}
	t[0x52] = op("byteArrayInc", arrayAdd(1), ArgByte, ArgPop)
	t[0x53] = op("wordArrayInc", arrayAdd(1), ArgVarRef, ArgPop)
	t[0x5A] = op("byteArrayDec", arrayAdd(-1), ArgByte, ArgPop)
	t[0x5B] = op("wordArrayDec", arrayAdd(-1), ArgVarRef, ArgPop)

	t[0x5C] = op("if", func(vm *VM, o *Operands) {
		if o.V(0) != 0 {
			vm.jumpRelative(o.V(1))
		}
	}, ArgPop, ArgWord)
	t[0x5D] = op("ifNot", func(vm *VM, o *Operands) {
		if o.V(0) == 0 {
			vm.jumpRelative(o.V(1))
		}
	}, ArgPop, ArgWord)
	t[0x73] = op("jump", func(vm *VM, o *Operands) { vm.jumpRelative(o.V(0)) }, ArgWord)

	// flags: bit 0 freeze resistant, bit 1 recursive
	t[0x5E] = op("startScript", func(vm *VM, o *Operands) {
		vm.runScript(o.I(1), o.V(0)&1 != 0, o.V(0)&2 != 0, o.List())
	}, ArgPop, ArgPop, ArgPopList)
	t[0x5F] = op("startScriptQuick", func(vm *VM, o *Operands) {
		vm.runScript(o.I(0), false, false, o.List())
	}, ArgPop, ArgPopList)
	t[0xBF] = op("startScriptQuick2", func(vm *VM, o *Operands) {
		vm.runScript(o.I(0), false, true, o.List())
	}, ArgPop, ArgPopList)
	t[0x60] = op("startObject", func(vm *VM, o *Operands) {
		vm.runObjectScript(o.I(1), o.I(2), o.V(0)&1 != 0, o.V(0)&2 != 0, o.List())
	}, ArgPop, ArgPop, ArgPop, ArgPopList)
	t[0xBE] = op("startObjectQuick", func(vm *VM, o *Operands) {
		vm.runObjectScript(o.I(0), o.I(1), false, true, o.List())
	}, ArgPop, ArgPop, ArgPopList)
	t[0xD5] = op("jumpToScript", func(vm *VM, o *Operands) {
		vm.stopObjectCode()
		vm.runScript(o.I(1), o.V(0)&1 != 0, o.V(0)&2 != 0, o.List())
	}, ArgPop, ArgPop, ArgPopList)

	t[0x61] = op("drawObject", func(vm *VM, o *Operands) {
		state := o.I(1)
		if state == 0 {
			state = 1
		}
		vm.drawObject(o.I(0), state)
	}, ArgPop, ArgPop)
	t[0x62] = op("drawObjectAt", func(vm *VM, o *Operands) {
		vm.log.Debug("drawObject at", "object", o.I(0), "x", o.I(1), "y", o.I(2))
		vm.drawObject(o.I(0), 1)
	}, ArgPop, ArgPop, ArgPop)
	t[0x63] = op("drawBlastObject", func(vm *VM, o *Operands) {
		vm.markObjectDirty(o.I(0))
	}, ArgPop, ArgPop, ArgPop, ArgPop, ArgPop, ArgPopList)
	t[0x64] = op("setBlastObjectWindow", func(vm *VM, o *Operands) {
		vm.display.MarkDirty(image.Rect(o.I(0), o.I(1), o.I(2), o.I(3)))
	}, ArgPop, ArgPop, ArgPop, ArgPop)
	t[0xCD] = op("stampObject", func(vm *VM, o *Operands) {
		vm.log.Debug("Stamp object", "object", o.I(0), "x", o.I(1), "y", o.I(2), "state", o.I(3))
		vm.markObjectDirty(o.I(0))
	}, ArgPop, ArgPop, ArgPop, ArgPop)

	t[0x65] = op("stopObjectCode", func(vm *VM, o *Operands) { vm.stopObjectCode() })
	t[0x66] = t[0x65]
	t[0x67] = op("endCutscene", func(vm *VM, o *Operands) { vm.endCutscene() })
	t[0x68] = op("cutscene", func(vm *VM, o *Operands) { vm.beginCutscene(o.List()) }, ArgPopList)
	t[0x69] = op("stopMusic", func(vm *VM, o *Operands) { vm.sound.StopAllSounds() })
	t[0x6A] = op("freezeUnfreeze", func(vm *VM, o *Operands) {
		if o.I(0) != 0 {
			vm.FreezeScripts(o.I(0))
		} else {
			vm.UnfreezeScripts()
		}
	}, ArgPop)
	t[0x6B] = op("cursorCommand", cursorOpsWith(cursorSubsV6))
	t[0x6C] = op("breakHere", func(vm *VM, o *Operands) { vm.breakHere() })

	t[0x6D] = op("ifClassOfIs", func(vm *VM, o *Operands) {
		vm.push(boolVal(vm.classesMatch(o.I(0), o.List())))
	}, ArgPop, ArgPopList)
	t[0x6E] = op("setClass", func(vm *VM, o *Operands) {
		for _, c := range o.List() {
			vm.SetClass(o.I(0), int(c))
		}
	}, ArgPop, ArgPopList)
	t[0x6F] = op("getState", func(vm *VM, o *Operands) { vm.push(int32(vm.GetState(o.I(0)))) }, ArgPop)
	t[0x70] = op("setState", func(vm *VM, o *Operands) {
		vm.putState(o.I(0), o.I(1))
		vm.markObjectDirty(o.I(0))
	}, ArgPop, ArgPop)
	t[0x71] = op("setOwner", func(vm *VM, o *Operands) { vm.setOwnerOf(o.I(0), o.I(1)) }, ArgPop, ArgPop)
	t[0x72] = op("getOwner", func(vm *VM, o *Operands) { vm.push(int32(vm.GetOwner(o.I(0)))) }, ArgPop)

	t[0x74] = op("startSound", func(vm *VM, o *Operands) { vm.sound.AddSoundToQueue(o.I(0)) }, ArgPop)
	t[0x75] = op("stopSound", func(vm *VM, o *Operands) { vm.sound.StopSound(o.I(0)) }, ArgPop)
	t[0x76] = op("startMusic", func(vm *VM, o *Operands) { vm.sound.AddSoundToQueue(o.I(0)) }, ArgPop)
	t[0x77] = op("stopObjectScript", func(vm *VM, o *Operands) { vm.stopObjectScript(o.I(0)) }, ArgPop)

	t[0x78] = op("panCameraTo", func(vm *VM, o *Operands) { vm.panCameraTo(o.I(0), 0) }, ArgPop)
	t[0x79] = op("actorFollowCamera", func(vm *VM, o *Operands) {
		vm.setCameraFollows(vm.derefActor(o.I(0), "actorFollowCamera"))
	}, ArgPop)
	t[0x7A] = op("setCameraAt", func(vm *VM, o *Operands) {
		vm.camera.Mode = CameraNormal
		vm.setCameraAt(o.I(0), 0)
	}, ArgPop)
	t[0x7B] = op("loadRoom", func(vm *VM, o *Operands) { vm.startScene(o.I(0)) }, ArgPop)
	t[0x7C] = op("stopScript", func(vm *VM, o *Operands) {
		if o.I(0) == 0 {
			vm.stopObjectCode()
			return
		}
		vm.stopScript(o.I(0))
	}, ArgPop)

	t[0x7D] = op("walkActorToObj", func(vm *VM, o *Operands) {
		a := vm.derefActor(o.I(0), "walkActorToObj")
		vm.walkActorToObject(a, o.I(1), o.I(2))
	}, ArgPop, ArgPop, ArgPop)
	t[0x7E] = op("walkActorTo", func(vm *VM, o *Operands) {
		a := vm.derefActor(o.I(0), "walkActorTo")
		if vm.inCurrentRoom(a) {
			vm.startWalk(a, o.I(1), o.I(2), -1)
		}
	}, ArgPop, ArgPop, ArgPop)
	t[0x7F] = op("putActorAtXY", func(vm *VM, o *Operands) {
		vm.putActorAtXY(vm.derefActor(o.I(0), "putActorAtXY"), o.I(1), o.I(2), o.I(3))
	}, ArgPop, ArgPop, ArgPop, ArgPop)
	t[0x80] = op("putActorAtObject", func(vm *VM, o *Operands) {
		vm.putActorAtObject(vm.derefActor(o.I(0), "putActorAtObject"), o.I(1), o.I(2))
	}, ArgPop, ArgPop, ArgPop)
	t[0x81] = op("faceActor", func(vm *VM, o *Operands) {
		vm.faceToObject(vm.derefActor(o.I(0), "faceActor"), o.I(1))
	}, ArgPop, ArgPop)
	t[0x82] = op("animateActor", func(vm *VM, o *Operands) {
		vm.startActorAnim(vm.derefActor(o.I(0), "animateActor"), o.I(1))
	}, ArgPop, ArgPop)
	t[0x83] = op("doSentence", func(vm *VM, o *Operands) {
		vm.doSentence(o.I(0), o.I(1), o.I(3))
	}, ArgPop, ArgPop, ArgPop, ArgPop)
	t[0x84] = op("pickupObject", func(vm *VM, o *Operands) {
		vm.pickupObject(o.I(0))
		vm.markObjectDirty(o.I(0))
	}, ArgPop, ArgPop)
	t[0x85] = op("loadRoomWithEgo", func(vm *VM, o *Operands) {
		vm.loadRoomWithEgo(o.I(0), o.I(1), o.I(2), o.I(3))
	}, ArgPop, ArgPop, ArgPop, ArgPop)

	t[0x87] = op("getRandomNumber", func(vm *VM, o *Operands) {
		vm.push(vm.randomNumber(0, int32(abs(o.I(0)))))
	}, ArgPop)
	t[0x88] = op("getRandomNumberRange", func(vm *VM, o *Operands) {
		vm.push(vm.randomNumber(o.V(0), o.V(1)))
	}, ArgPop, ArgPop)

	actorGet := func(name string, f func(a *Actor) int) *opcode {
		return op(name, func(vm *VM, o *Operands) {
			vm.push(int32(f(vm.derefActor(o.I(0), name))))
		}, ArgPop)
	}
	t[0x8A] = actorGet("getActorMoving", func(a *Actor) int { return a.Moving })
	t[0x8B] = op("isScriptRunning", func(vm *VM, o *Operands) {
		vm.push(boolVal(vm.IsScriptRunning(o.I(0))))
	}, ArgPop)
	t[0x8C] = op("getActorRoom", func(vm *VM, o *Operands) {
		a := vm.Actor(o.I(0))
		if a == nil {
			vm.push(0)
			return
		}
		vm.push(int32(a.Room))
	}, ArgPop)
	t[0x8D] = op("getObjectX", func(vm *VM, o *Operands) {
		x, _, ok := vm.objectOrActorXY(o.I(0))
		if !ok {
			x = -1
		}
		vm.push(int32(x))
	}, ArgPop)
	t[0x8E] = op("getObjectY", func(vm *VM, o *Operands) {
		_, y, ok := vm.objectOrActorXY(o.I(0))
		if !ok {
			y = -1
		}
		vm.push(int32(y))
	}, ArgPop)
	t[0x8F] = op("getObjectOldDir", func(vm *VM, o *Operands) {
		if a := vm.Actor(o.I(0)); a != nil {
			vm.push(int32(actorOldDir(a)))
			return
		}
		vm.push(0)
	}, ArgPop)
	t[0x90] = actorGet("getActorWalkBox", func(a *Actor) int {
		if a.IgnoreBoxes {
			return 0
		}
		return a.Box
	})
	t[0x91] = actorGet("getActorCostume", func(a *Actor) int { return a.Costume })
	t[0x92] = op("findInventory", func(vm *VM, o *Operands) {
		vm.push(int32(vm.FindInventory(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0x93] = op("getInventoryCount", func(vm *VM, o *Operands) {
		vm.push(int32(vm.InventoryCount(o.I(0))))
	}, ArgPop)
	t[0x94] = op("getVerbFromXY", func(vm *VM, o *Operands) {
		vm.push(int32(vm.findVerbAtPos(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0x95] = op("beginOverride", func(vm *VM, o *Operands) { vm.beginOverride() })
	t[0x96] = op("endOverride", func(vm *VM, o *Operands) { vm.endOverride() })
	t[0x97] = op("setObjectName", func(vm *VM, o *Operands) {
		vm.setObjectName(o.I(0), o.Str())
	}, ArgPop, ArgString)
	t[0x98] = op("isSoundRunning", func(vm *VM, o *Operands) {
		vm.push(boolVal(o.I(0) != 0 && vm.sound.IsSoundRunning(o.I(0))))
	}, ArgPop)
	t[0x99] = op("setBoxFlags", func(vm *VM, o *Operands) {
		for _, b := range o.List() {
			vm.setBoxFlags(int(b), o.I(1))
		}
	}, ArgPopList, ArgPop)
	t[0x9A] = op("createBoxMatrix", func(vm *VM, o *Operands) { vm.createBoxMatrix() })
	t[0x9B] = op("resourceRoutines", resourceOpsWith(resourceSubsV6))
	t[0x9C] = op("roomOps", opRoomOpsV6)
	t[0x9D] = op("actorOps", actorOpsWith(actorSubsV6))
	t[0x9E] = op("verbOps", verbOpsWith(verbSubsV6))
	t[0x9F] = op("getActorFromXY", func(vm *VM, o *Operands) {
		vm.push(int32(vm.actorFromPos(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0xA0] = op("findObject", func(vm *VM, o *Operands) {
		vm.push(int32(vm.findObject(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0xA1] = op("pseudoRoom", func(vm *VM, o *Operands) {
		for _, r := range o.List() {
			if r >= 0x80 {
				vm.log.Debug("Pseudo room", "room", r&0x7F, "maps_to", o.V(0))
			}
		}
	}, ArgPop, ArgPopList)
	t[0xA2] = actorGet("getActorElevation", func(a *Actor) int { return a.Elevation })
	t[0xA3] = op("getVerbEntrypoint", func(vm *VM, o *Operands) {
		vm.push(int32(vm.verbEntrypoint(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0xA4] = op("arrayOps", arrayOpsWith(arraySubsV6))
	t[0xA5] = op("saveRestoreVerbs", func(vm *VM, o *Operands) {
		kind := int(vm.fetchByte()) - 140
		if !vm.saveRestoreVerbs(kind, o.I(0), o.I(1), o.I(2)) {
			vm.unsupported("saveRestoreVerbs", kind+140)
		}
	}, ArgPop, ArgPop, ArgPop)
	t[0xA6] = op("drawBox", func(vm *VM, o *Operands) {
		vm.display.MarkDirty(image.Rect(o.I(0), o.I(1), o.I(2)+1, o.I(3)+1))
	}, ArgPop, ArgPop, ArgPop, ArgPop, ArgPop)
	t[0xA8] = actorGet("getActorWidth", func(a *Actor) int { return a.Width })
	t[0xA9] = op("wait", waitOpsWith(waitSubsV6))
	t[0xAA] = actorGet("getActorScaleX", func(a *Actor) int { return a.ScaleX })
	t[0xAB] = actorGet("getActorAnimCounter", func(a *Actor) int { return int(a.Cost.AnimCounter) })
	t[0xAC] = op("soundKludge", func(vm *VM, o *Operands) {
		vm.log.Debug("Sound command", "args", o.List())
	}, ArgPopList)
	t[0xAD] = op("isAnyOf", func(vm *VM, o *Operands) {
		vm.push(boolVal(isAnyOf(o.V(0), o.List())))
	}, ArgPop, ArgPopList)
	t[0xAE] = op("systemOps", systemOpsWith(systemSubsV6))
	t[0xAF] = op("isActorInBox", func(vm *VM, o *Operands) {
		vm.push(boolVal(vm.actorInBox(vm.derefActor(o.I(0), "isActorInBox"), o.I(1))))
	}, ArgPop, ArgPop)
	t[0xB0] = op("delay", func(vm *VM, o *Operands) { vm.delayScript(o.V(0)) }, ArgPop)
	t[0xB1] = op("delaySeconds", func(vm *VM, o *Operands) { vm.delayScript(o.V(0) * 60) }, ArgPop)
	t[0xB2] = op("delayMinutes", func(vm *VM, o *Operands) { vm.delayScript(o.V(0) * 3600) }, ArgPop)
	t[0xB3] = op("stopSentence", func(vm *VM, o *Operands) { vm.clearSentences() })

	t[0xB4] = op("printLine", printOpsWith(slotTalk, nil, printSubsV6))
	t[0xB5] = op("printText", printOpsWith(slotPrint, nil, printSubsV6))
	t[0xB6] = op("printDebug", printOpsWith(slotDebug, nil, printSubsV6))
	t[0xB7] = op("printSystem", printOpsWith(slotSystem, nil, printSubsV6))
	t[0xB8] = op("printActor", printOpsWith(slotTalk, popActor, printSubsV6))
	t[0xB9] = op("printEgo", printOpsWith(slotTalk, egoActor, printSubsV6))
	t[0xBA] = op("talkActor", func(vm *VM, o *Operands) { vm.talk(o.I(0), o.Str()) }, ArgPop, ArgString)
	t[0xBB] = op("talkEgo", func(vm *VM, o *Operands) { vm.talk(egoActor(vm), o.Str()) }, ArgString)

	t[0xBC] = op("dimArray", dimOpsWith(dimSubsV6, false))
	t[0xBD] = op("dummy", func(vm *VM, o *Operands) {})
	t[0xC0] = op("dim2dimArray", dimOpsWith(dimSubsV6, true))

	t[0xC5] = op("distObjectObject", func(vm *VM, o *Operands) {
		vm.push(int32(vm.objActDist(o.I(0), o.I(1))))
	}, ArgPop, ArgPop)
	t[0xC6] = op("distObjectPt", func(vm *VM, o *Operands) {
		x, y, ok := vm.objectOrActorXY(o.I(0))
		if !ok {
			vm.push(0xFF)
			return
		}
		vm.push(int32(actorDistance(x, y, o.I(1), o.I(2))))
	}, ArgPop, ArgPop, ArgPop)
	t[0xC7] = op("distPtPt", func(vm *VM, o *Operands) {
		vm.push(int32(actorDistance(o.I(0), o.I(1), o.I(2), o.I(3))))
	}, ArgPop, ArgPop, ArgPop, ArgPop)
	t[0xC8] = op("kernelGetFunctions", opKernelGetV6, ArgPopList)
	t[0xC9] = op("kernelSetFunctions", opKernelSetV6, ArgPopList)
	t[0xCA] = op("delayFrames", opDelayFrames)
	t[0xCB] = op("pickOneOf", func(vm *VM, o *Operands) {
		i, list := o.I(0), o.List()
		if i < 0 || i >= len(list) {
			vm.faultf(ErrorArrayBounds, "pickOneOf: %d outside %d choices", i, len(list))
		}
		vm.push(list[i])
	}, ArgPop, ArgPopList)
	t[0xCC] = op("pickOneOfDefault", func(vm *VM, o *Operands) {
		i, list := o.I(0), o.List()
		if i < 0 || i >= len(list) {
			vm.push(o.V(2))
			return
		}
		vm.push(list[i])
	}, ArgPop, ArgPopList, ArgPop)
	t[0xD1] = op("stopTalking", func(vm *VM, o *Operands) { vm.stopTalk() })
	t[0xD2] = op("getAnimateVariable", func(vm *VM, o *Operands) {
		vm.push(animVar(vm.derefActor(o.I(0), "getAnimateVariable"), o.I(1)))
	}, ArgPop, ArgPop)
	t[0xD4] = op("shuffle", func(vm *VM, o *Operands) {
		vm.shuffleArray(o.I(0), o.I(1), o.I(2))
	}, ArgVarRef, ArgPop, ArgPop)
	t[0xD8] = op("isRoomScriptRunning", func(vm *VM, o *Operands) {
		vm.push(boolVal(vm.isRoomScriptRunning(o.I(0))))
	}, ArgPop)
	t[0xDD] = op("findAllObjects", func(vm *VM, o *Operands) {
		if o.I(0) != vm.roomID {
			vm.faultf(ErrorVariableRange, "findAllObjects: current room is not %d", o.I(0))
		}
		vm.push(vm.findAllObjects())
	}, ArgPop)
	t[0xE3] = op("pickVarRandom", func(vm *VM, o *Operands) {
		vm.push(vm.pickVarRandom(o.I(1), o.List()))
	}, ArgPopList, ArgVarRef)
	t[0xEC] = actorGet("getActorLayer", func(a *Actor) int { return a.Layer })
	t[0xED] = op("getObjectNewDir", func(vm *VM, o *Operands) {
		if a := vm.Actor(o.I(0)); a != nil {
			vm.push(int32(a.Facing))
			return
		}
		vm.push(0)
	}, ArgPop)
}

// initV7 patches the v7 differences into a copy of the v6 table.
func initV7(t *[256]*opcode) {
	t[0x78] = op("panCameraTo", func(vm *VM, o *Operands) { vm.panCameraTo(o.I(0), o.I(1)) }, ArgPop, ArgPop)
	t[0x7A] = op("setCameraAt", func(vm *VM, o *Operands) {
		vm.camera.Mode = CameraNormal
		vm.setCameraAt(o.I(0), o.I(1))
	}, ArgPop, ArgPop)
	// the object's home room comes from the index
	t[0x84] = op("pickupObject", func(vm *VM, o *Operands) {
		vm.pickupObject(o.I(0))
		vm.markObjectDirty(o.I(0))
	}, ArgPop)
	t[0x85] = op("loadRoomWithEgo", func(vm *VM, o *Operands) {
		vm.loadRoomWithEgo(o.I(0), vm.objectRoom(o.I(0)), o.I(1), o.I(2))
	}, ArgPop, ArgPop, ArgPop)
}

// --- helpers shared by the stack dialects ---

func popActor(vm *VM) int {
	return int(vm.pop())
}

func egoActor(vm *VM) int {
	return int(vm.engineVar(vm.cfg.Vars.Ego))
}

// talk speaks an inline line for actor with the talk slot's defaults.
func (vm *VM) talk(actor int, msg []byte) {
	vm.printActor = actor
	vm.textDef.Slots[slotTalk].loadDefault()
	vm.printString(slotTalk, msg)
}

// loadRoomWithEgo enters room with the ego next to obj, then walks the
// ego to (x, y) unless x is -1.
func (vm *VM) loadRoomWithEgo(obj, room, x, y int) {
	ego := vm.enterRoomWithEgo(obj, room)
	if x != -1 && x != 0x7FFFFFFF {
		vm.startWalk(ego, x, y, -1)
	}
}

func animVar(a *Actor, n int) int32 {
	if n < 0 || n >= len(a.Cost.AnimVars) {
		return 0
	}
	return a.Cost.AnimVars[n]
}

// findAllObjects lists the current room's objects in an array held by
// variable 0: element 0 is the count.
func (vm *VM) findAllObjects() int32 {
	n := len(vm.room.Objects)
	vm.writeVar(0, 0)
	vm.defineArray(0, ArrayInt, 0, n)
	vm.writeArray(0, 0, 0, int32(n))
	for i, obj := range vm.room.Objects {
		vm.writeArray(0, 0, i+1, int32(obj.ID))
	}
	return vm.readVar(0)
}

// opDelayFrames counts frames down on re-execution of the same opcode.
func opDelayFrames(vm *VM, o *Operands) {
	s := &vm.slots[vm.current]
	if s.delayFrames == 0 {
		s.delayFrames = vm.pop()
	} else {
		s.delayFrames--
	}
	if s.delayFrames != 0 {
		vm.pc--
		vm.breakHere()
	}
}

// specialBox returns the topmost box holding (x, y), or -1. A visible
// player-only box above the point hides everything below it.
func (vm *VM) specialBox(x, y int) int {
	if vm.room == nil {
		return -1
	}
	for i := len(vm.room.Boxes) - 1; i >= 0; i-- {
		b := vm.room.Boxes[i]
		if b.Flags&0x80 == 0 && b.Flags&0x20 != 0 {
			return -1
		}
		if vm.boxContains(i, x, y) {
			return i
		}
	}
	return -1
}

func (vm *VM) boxContains(box, x, y int) bool {
	if vm.room == nil || box < 0 || box >= len(vm.room.Boxes) {
		return false
	}
	return vm.room.Boxes[box].Contains(walkbox.Point{X: x, Y: y})
}

// closestColor returns the palette index nearest to an RGB triple.
func (vm *VM) closestColor(r, g, b int) int {
	best, bestDist := 0, -1
	for i := 0; i*3+2 < len(vm.palette); i++ {
		dr := int(vm.palette[i*3]) - r
		dg := int(vm.palette[i*3+1]) - g
		db := int(vm.palette[i*3+2]) - b
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// roomObjectRect returns a room object's image rectangle.
func (vm *VM) roomObjectRect(obj int) image.Rectangle {
	if vm.room == nil {
		return image.Rectangle{}
	}
	o := vm.room.Object(obj)
	if o == nil {
		return image.Rectangle{}
	}
	return image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height)
}

func opKernelGetV6(vm *VM, o *Operands) {
	args := append(o.List(), 0, 0, 0, 0)
	switch args[0] {
	case 115:
		vm.push(int32(vm.specialBox(int(args[1]), int(args[2]))))
	case 116:
		vm.push(boolVal(vm.boxContains(int(args[3]), int(args[1]), int(args[2]))))
	case 206:
		vm.push(int32(vm.closestColor(int(args[1]), int(args[2]), int(args[3]))))
	case 207:
		vm.push(int32(vm.roomObjectRect(int(args[1])).Min.X / 8))
	case 208:
		vm.push(int32(vm.roomObjectRect(int(args[1])).Min.Y / 8))
	case 209:
		vm.push(int32(vm.roomObjectRect(int(args[1])).Dx() / 8))
	case 210:
		vm.push(int32(vm.roomObjectRect(int(args[1])).Dy() / 8))
	case 212:
		vm.push(int32(vm.derefActor(int(args[1]), "kernelGetFunctions").Frame))
	case 213, 214:
		slot := vm.verbSlot(int(args[1]), 0)
		v := vm.verbs[slot]
		if args[0] == 213 {
			vm.push(int32(v.X))
		} else {
			vm.push(int32(v.Y))
		}
	case 215:
		box := int(args[1])
		if vm.room == nil || box < 0 || box >= len(vm.room.Boxes) {
			vm.push(0)
			return
		}
		vm.push(int32(vm.room.Boxes[box].Flags))
	default:
		vm.unsupported("kernelGetFunctions", int(args[0]))
	}
}

func opKernelSetV6(vm *VM, o *Operands) {
	args := append(o.List(), 0, 0, 0, 0, 0, 0)
	switch args[0] {
	case 3:
	case 4, 5, 108, 109, 110, 124:
		vm.log.Debug("Presentation request", "function", args[0], "args", o.List()[1:])
	case 6:
		vm.display.MarkDirty(image.Rect(0, 0, vm.cfg.ScreenWidth, vm.cfg.ScreenHeight))
	case 107:
		a := vm.derefActor(int(args[1]), "kernelSetFunctions")
		a.ScaleX = int(uint8(args[2]))
		a.needRedraw = true
	case 111:
		a := vm.derefActor(int(args[1]), "kernelSetFunctions")
		a.ShadowMode = int(args[2] + args[3])
	case 117:
		vm.FreezeScripts(2)
	case 120:
		vm.swapPalColors(int(args[1]), int(args[2]))
	case 122:
		vm.log.Debug("Sound engine command", "args", o.List()[1:])
		vm.setEngineVar(vm.cfg.Vars.SoundResult, 0)
	case 123:
		vm.copyPalColor(int(args[2]), int(args[1]))
	default:
		vm.unsupported("kernelSetFunctions", int(args[0]))
	}
}

func opRoomOpsV6(vm *VM, o *Operands) {
	sub := vm.fetchByte()
	switch sub {
	case 172:
		hi, lo := int(vm.pop()), int(vm.pop())
		vm.setCameraRange(lo, hi)
	case 174:
		b, a := vm.pop(), vm.pop()
		vm.log.Debug("Screen split", "top", a, "bottom", b)
	case 175:
		idx, bl, g, r := vm.pop(), vm.pop(), vm.pop(), vm.pop()
		vm.setPalColor(int(idx), int(r), int(g), int(bl))
	case 176, 177:
		vm.log.Debug("Screen shake", "on", sub == 176)
	case 179:
		end, start, scale := int(vm.pop()), int(vm.pop()), int(vm.pop())
		vm.darkenPalette(scale, scale, scale, start, end)
	case 180:
		slot, flag := vm.pop(), vm.pop()
		vm.requestSaveLoad(int(flag), int(slot))
	case 181:
		vm.log.Debug("Screen fade", "effect", vm.pop())
	case 182:
		end, start, b, g, r := int(vm.pop()), int(vm.pop()), int(vm.pop()), int(vm.pop()), int(vm.pop())
		vm.darkenPalette(r, g, b, start, end)
	case 183:
		for range 5 {
			vm.pop()
		}
		vm.log.Debug("Shadow palette")
	case 186:
		d, c, b, a := vm.pop(), vm.pop(), vm.pop(), vm.pop()
		vm.log.Debug("Palette transform", "resource", a, "start", b, "end", c, "time", d)
	case 187:
		rate, idx := int(vm.pop()), int(vm.pop())
		if idx < 1 || idx > len(vm.cycles) {
			vm.faultf(ErrorVariableRange, "colour cycle %d out of range", idx)
		}
		if rate != 0 {
			vm.cycles[idx-1].Delay = 0x4000 / (rate * 0x4C)
		} else {
			vm.cycles[idx-1].Delay = 0
		}
	case 213:
		vm.log.Debug("Alternate room palette", "palette", vm.pop())
	default:
		vm.unsupported("roomOps", int(sub))
	}
}

// setCameraRange clamps and stores the scroll limits.
func (vm *VM) setCameraRange(lo, hi int) {
	half := vm.cfg.ScreenWidth / 2
	lo, hi = max(lo, half), max(hi, half)
	if vm.room != nil {
		lo, hi = min(lo, vm.room.Width-half), min(hi, vm.room.Width-half)
	}
	vm.setEngineVar(vm.cfg.Vars.CameraMinX, int32(lo))
	vm.setEngineVar(vm.cfg.Vars.CameraMaxX, int32(hi))
}
