package vm

import (
	"image"
)

// opcodesV5 is the register-operand dialect of v5. Most instructions exist
// in several variants whose top bits say which operands are variables.
var opcodesV5 [256]*opcode

// opcodesV4 is v5 with the v3/v4 instructions patched in.
var opcodesV4 [256]*opcode

// setVariants installs o at base and at every combination of the first n
// parameter bits.
func setVariants(t *[256]*opcode, base byte, n int, o *opcode) {
	for mask := 0; mask < 1<<n; mask++ {
		b := base
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				b |= paramBits[i]
			}
		}
		t[b] = o
	}
}

// jumpUnless takes the branch offset when cond is false.
func (vm *VM) jumpUnless(cond bool, off int32) {
	if !cond {
		vm.jumpRelative(off)
	}
}

// textSlotFor maps the v5 print target to a text slot.
func textSlotFor(actor int) int {
	switch actor {
	case 252:
		return slotSystem
	case 253:
		return slotDebug
	case 254:
		return slotPrint
	}
	return slotTalk
}

func init() {
	t := &opcodesV5

	setVariants(t, 0x00, 0, op("stopObjectCode", func(vm *VM, o *Operands) { vm.stopObjectCode() }))
	setVariants(t, 0xA0, 0, t[0x00])
	setVariants(t, 0x80, 0, op("breakHere", func(vm *VM, o *Operands) { vm.breakHere() }))

	setVariants(t, 0x01, 3, op("putActor", func(vm *VM, o *Operands) {
		a := vm.derefActor(o.I(0), "putActor")
		vm.putActor(a, o.I(1), o.I(2), a.Room)
	}, ArgP8, ArgP16, ArgP16))
	setVariants(t, 0x02, 1, op("startMusic", func(vm *VM, o *Operands) {
		vm.sound.AddSoundToQueue(o.I(0))
	}, ArgP8))
	setVariants(t, 0x03, 1, op("getActorRoom", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorRoom").Room))
	}, ArgResult, ArgP8))

	// comparisons test the literal against the variable: "b op a"
	cmp := func(name string, base byte, f func(a, b int32) bool) {
		setVariants(t, base, 1, op(name, func(vm *VM, o *Operands) {
			vm.jumpUnless(f(o.V(0), o.V(1)), o.V(2))
		}, ArgVar, ArgP16, ArgWord))
	}
	cmp("isGreaterEqual", 0x04, func(a, b int32) bool { return b >= a })
	cmp("isNotEqual", 0x08, func(a, b int32) bool { return b != a })
	cmp("isLessEqual", 0x38, func(a, b int32) bool { return b <= a })
	cmp("isLess", 0x44, func(a, b int32) bool { return b < a })
	cmp("isEqual", 0x48, func(a, b int32) bool { return b == a })
	cmp("isGreater", 0x78, func(a, b int32) bool { return b > a })
	t[0x28] = op("equalZero", func(vm *VM, o *Operands) { vm.jumpUnless(o.V(0) == 0, o.V(1)) }, ArgVar, ArgWord)
	t[0xA8] = op("notEqualZero", func(vm *VM, o *Operands) { vm.jumpUnless(o.V(0) != 0, o.V(1)) }, ArgVar, ArgWord)
	setVariants(t, 0x18, 0, op("jumpRelative", func(vm *VM, o *Operands) { vm.jumpRelative(o.V(0)) }, ArgWord))

	setVariants(t, 0x05, 3, op("drawObject", func(vm *VM, o *Operands) {
		obj := o.I(0)
		state := 1
		vm.opcode = vm.fetchByte()
		switch vm.opcode & 0x1F {
		case 1:
			x, y := vm.getVarOrDirectWord(0x80), vm.getVarOrDirectWord(0x40)
			vm.log.Debug("drawObject at", "object", obj, "x", x, "y", y)
		case 2:
			state = int(vm.getVarOrDirectWord(0x80))
		case 0x1F:
		default:
			vm.unsupported("drawObject", int(vm.opcode&0x1F))
		}
		vm.drawObject(obj, state)
	}, ArgP16))
	setVariants(t, 0x06, 1, op("getActorElevation", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorElevation").Elevation))
	}, ArgResult, ArgP8))
	setVariants(t, 0x07, 2, op("setState", func(vm *VM, o *Operands) {
		vm.putState(o.I(0), o.I(1))
		vm.markObjectDirty(o.I(0))
	}, ArgP16, ArgP8))
	setVariants(t, 0x09, 2, op("faceActor", func(vm *VM, o *Operands) {
		vm.faceToObject(vm.derefActor(o.I(0), "faceActor"), o.I(1))
	}, ArgP8, ArgP16))

	// bit 0x20 makes the script freeze resistant, bit 0x40 recursive
	setVariants(t, 0x0A, 3, op("startScript", func(vm *VM, o *Operands) {
		vm.runScript(o.I(0), o.Op()&0x20 != 0, o.Op()&0x40 != 0, o.List())
	}, ArgP8, ArgVarargs))
	setVariants(t, 0x0B, 2, op("getVerbEntrypoint", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.verbEntrypoint(o.I(1), o.I(2))))
	}, ArgResult, ArgP16, ArgP16))
	setVariants(t, 0x0C, 1, op("resourceRoutines", opResourceRoutinesV5))
	setVariants(t, 0x0D, 2, op("walkActorToActor", func(vm *VM, o *Operands) {
		a := vm.derefActor(o.I(0), "walkActorToActor")
		b := vm.derefActor(o.I(1), "walkActorToActor(2)")
		dist := int(vm.fetchByte())
		if !vm.inCurrentRoom(a) || !vm.inCurrentRoom(b) {
			return
		}
		if dist == 0xFF {
			dist = a.ScaleX*a.Width/0xFF + b.ScaleX*b.Width/0xFF/2
		}
		x := b.X
		if x < a.X {
			x += dist
		} else {
			x -= dist
		}
		vm.startWalk(a, x, b.Y, -1)
	}, ArgP8, ArgP8))
	setVariants(t, 0x0E, 2, op("putActorAtObject", func(vm *VM, o *Operands) {
		vm.putActorAtObject(vm.derefActor(o.I(0), "putActorAtObject"), o.I(1), 0xFF)
	}, ArgP8, ArgP16))
	setVariants(t, 0x0F, 1, op("getObjectState", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.GetState(o.I(1))))
	}, ArgResult, ArgP16))
	setVariants(t, 0x10, 1, op("getObjectOwner", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.GetOwner(o.I(1))))
	}, ArgResult, ArgP16))
	setVariants(t, 0x11, 2, op("animateActor", func(vm *VM, o *Operands) {
		vm.startActorAnim(vm.derefActor(o.I(0), "animateActor"), o.I(1))
	}, ArgP8, ArgP8))
	setVariants(t, 0x12, 1, op("panCameraTo", func(vm *VM, o *Operands) {
		vm.panCameraTo(o.I(0), 0)
	}, ArgP16))
	setVariants(t, 0x13, 2, op("actorOps", opActorOpsV5, ArgP8))
	setVariants(t, 0x14, 1, op("print", func(vm *VM, o *Operands) {
		vm.printActor = o.I(0)
		vm.decodeParseStringV5(textSlotFor(o.I(0)))
	}, ArgP8))
	t[0xD8] = op("printEgo", func(vm *VM, o *Operands) {
		vm.printActor = int(vm.engineVar(vm.cfg.Vars.Ego))
		vm.decodeParseStringV5(slotTalk)
	})
	setVariants(t, 0x15, 2, op("actorFromPos", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.actorFromPos(o.I(1), o.I(2))))
	}, ArgResult, ArgP16, ArgP16))
	setVariants(t, 0x16, 1, op("getRandomNr", func(vm *VM, o *Operands) {
		vm.setResult(vm.randomNumber(0, o.V(1)))
	}, ArgResult, ArgP8))

	arith := func(name string, base byte, f func(vm *VM, cur, v int32) int32) {
		setVariants(t, base, 1, op(name, func(vm *VM, o *Operands) {
			vm.setResult(f(vm, vm.readVar(vm.resultVar), o.V(1)))
		}, ArgResult, ArgP16))
	}
	arith("and", 0x17, func(vm *VM, cur, v int32) int32 { return cur & v })
	arith("or", 0x57, func(vm *VM, cur, v int32) int32 { return cur | v })
	arith("multiply", 0x1B, func(vm *VM, cur, v int32) int32 { return cur * v })
	arith("add", 0x5A, func(vm *VM, cur, v int32) int32 { return cur + v })
	arith("subtract", 0x3A, func(vm *VM, cur, v int32) int32 { return cur - v })
	arith("divide", 0x5B, func(vm *VM, cur, v int32) int32 {
		if v == 0 {
			vm.fault(NewDivisionByZeroError())
		}
		return cur / v
	})
	setVariants(t, 0x1A, 1, op("move", func(vm *VM, o *Operands) { vm.setResult(o.V(1)) }, ArgResult, ArgP16))
	t[0x46] = op("increment", func(vm *VM, o *Operands) {
		vm.setResult(vm.readVar(vm.resultVar) + 1)
	}, ArgResult)
	t[0xC6] = op("decrement", func(vm *VM, o *Operands) {
		vm.setResult(vm.readVar(vm.resultVar) - 1)
	}, ArgResult)

	setVariants(t, 0x19, 3, op("doSentence", func(vm *VM, o *Operands) {
		verb := o.I(0)
		if verb == 0xFE {
			vm.clearSentences()
			return
		}
		a := int(vm.getVarOrDirectWord(0x40))
		b := int(vm.getVarOrDirectWord(0x20))
		vm.doSentence(verb, a, b)
	}, ArgP8))
	setVariants(t, 0x1C, 1, op("startSound", func(vm *VM, o *Operands) {
		vm.setEngineVar(vm.cfg.Vars.MusicTimer, 0)
		vm.sound.AddSoundToQueue(o.I(0))
	}, ArgP8))
	setVariants(t, 0x1D, 1, op("ifClassOfIs", func(vm *VM, o *Operands) {
		vm.jumpUnless(vm.classesMatch(o.I(0), o.List()), vm.fetchWordSigned())
	}, ArgP16, ArgVarargs))
	setVariants(t, 0x1E, 3, op("walkActorTo", func(vm *VM, o *Operands) {
		vm.startWalk(vm.derefActor(o.I(0), "walkActorTo"), o.I(1), o.I(2), -1)
	}, ArgP8, ArgP16, ArgP16))
	setVariants(t, 0x1F, 2, op("isActorInBox", func(vm *VM, o *Operands) {
		a := vm.derefActor(o.I(0), "isActorInBox")
		vm.jumpUnless(vm.actorInBox(a, o.I(1)), vm.fetchWordSigned())
	}, ArgP8, ArgP8))
	t[0x20] = op("stopMusic", func(vm *VM, o *Operands) { vm.sound.StopAllSounds() })
	setVariants(t, 0x22, 1, op("getAnimCounter", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getAnimCounter").Cost.AnimCounter))
	}, ArgResult, ArgP8))
	setVariants(t, 0x23, 1, op("getActorY", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorY").Y))
	}, ArgResult, ArgP16))
	setVariants(t, 0x43, 1, op("getActorX", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorX").X))
	}, ArgResult, ArgP16))
	setVariants(t, 0x24, 2, op("loadRoomWithEgo", func(vm *VM, o *Operands) {
		obj, room := o.I(0), o.I(1)
		x, y := vm.fetchWordSigned(), vm.fetchWordSigned()
		ego := vm.enterRoomWithEgo(obj, room)
		if x != -1 {
			vm.startWalk(ego, int(x), int(y), -1)
		}
	}, ArgP16, ArgP8))
	setVariants(t, 0x25, 2, op("pickupObject", func(vm *VM, o *Operands) {
		vm.pickupObject(o.I(0))
		vm.markObjectDirty(o.I(0))
	}, ArgP16, ArgP8))
	setVariants(t, 0x50, 1, op("pickupObjectOld", func(vm *VM, o *Operands) {
		obj := o.I(0)
		if obj < 1 || vm.whereIsObject(obj) == WhereInventory {
			return
		}
		vm.pickupObject(obj)
	}, ArgP16))
	setVariants(t, 0x26, 1, op("setVarRange", func(vm *VM, o *Operands) {
		for n := vm.fetchByte(); n > 0; n-- {
			var v int32
			if o.Op()&0x80 != 0 {
				v = int32(int16(vm.fetchWord()))
			} else {
				v = int32(vm.fetchByte())
			}
			vm.setResult(v)
			vm.resultVar++
		}
	}, ArgResult))
	t[0x27] = op("stringOps", opStringOpsV5)
	setVariants(t, 0x29, 2, op("setOwnerOf", func(vm *VM, o *Operands) {
		vm.setOwnerOf(o.I(0), o.I(1))
	}, ArgP16, ArgP8))
	t[0x2B] = op("delayVariable", func(vm *VM, o *Operands) { vm.delayScript(o.V(0)) }, ArgVar)
	t[0x2C] = op("cursorCommand", opCursorCommandV5)
	setVariants(t, 0x2D, 2, op("putActorInRoom", func(vm *VM, o *Operands) {
		vm.putActorInRoom(vm.derefActor(o.I(0), "putActorInRoom"), o.I(1))
	}, ArgP8, ArgP8))
	t[0x2E] = op("delay", func(vm *VM, o *Operands) {
		d := int32(vm.fetchByte())
		d |= int32(vm.fetchByte()) << 8
		d |= int32(vm.fetchByte()) << 16
		vm.delayScript(d)
	})
	setVariants(t, 0x30, 1, op("matrixOps", func(vm *VM, o *Operands) {
		vm.opcode = vm.fetchByte()
		switch vm.opcode & 0x1F {
		case 1:
			box := vm.getVarOrDirectByte(0x80)
			vm.setBoxFlags(int(box), int(vm.getVarOrDirectByte(0x40)))
		case 2, 3:
			box := vm.getVarOrDirectByte(0x80)
			vm.setBoxScale(int(box), int(vm.getVarOrDirectByte(0x40)))
		case 4:
			vm.createBoxMatrix()
		default:
			vm.unsupported("matrixOps", int(vm.opcode&0x1F))
		}
	}))
	setVariants(t, 0x31, 1, op("getInventoryCount", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.InventoryCount(o.I(1))))
	}, ArgResult, ArgP8))
	setVariants(t, 0x32, 1, op("setCameraAt", func(vm *VM, o *Operands) {
		vm.setCameraAt(o.I(0), 0)
	}, ArgP16))
	setVariants(t, 0x33, 2, op("roomOps", opRoomOpsV5))
	setVariants(t, 0x34, 2, op("getDist", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.objActDist(o.I(1), o.I(2))))
	}, ArgResult, ArgP16, ArgP16))
	setVariants(t, 0x35, 2, op("findObject", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.findObject(o.I(1), o.I(2))))
	}, ArgResult, ArgP8, ArgP8))
	setVariants(t, 0x36, 2, op("walkActorToObject", func(vm *VM, o *Operands) {
		vm.walkActorToObject(vm.derefActor(o.I(0), "walkActorToObject"), o.I(1), 0)
	}, ArgP8, ArgP16))
	setVariants(t, 0x37, 2, op("startObject", func(vm *VM, o *Operands) {
		vm.runObjectScript(o.I(0), o.I(1), false, false, o.List())
	}, ArgP16, ArgP8, ArgVarargs))
	setVariants(t, 0x3B, 1, op("getActorScale", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorScale").ScaleX))
	}, ArgResult, ArgP8))
	setVariants(t, 0x3C, 1, op("stopSound", func(vm *VM, o *Operands) {
		vm.sound.StopSound(o.I(0))
	}, ArgP8))
	setVariants(t, 0x3D, 2, op("findInventory", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.FindInventory(o.I(1), o.I(2))))
	}, ArgResult, ArgP8, ArgP8))
	setVariants(t, 0x3F, 2, op("drawBox", func(vm *VM, o *Operands) {
		x, y := o.I(0), o.I(1)
		vm.opcode = vm.fetchByte()
		x2, y2 := int(vm.getVarOrDirectWord(0x80)), int(vm.getVarOrDirectWord(0x40))
		color := vm.getVarOrDirectByte(0x20)
		vm.display.MarkDirty(image.Rect(x, y, x2+1, y2+1))
		vm.log.Debug("drawBox", "x", x, "y", y, "x2", x2, "y2", y2, "color", color)
	}, ArgP16, ArgP16))

	t[0x40] = op("cutscene", func(vm *VM, o *Operands) { vm.beginCutscene(o.List()) }, ArgVarargs)
	t[0xC0] = op("endCutscene", func(vm *VM, o *Operands) { vm.endCutscene() })
	setVariants(t, 0x42, 1, op("chainScript", func(vm *VM, o *Operands) {
		cur := &vm.slots[vm.current]
		fr, rec := cur.FreezeResistant, cur.Recursive
		vm.killSlot(vm.current)
		vm.runScript(o.I(0), fr, rec, o.List())
	}, ArgP8, ArgVarargs))
	t[0x4C] = op("soundKludge", func(vm *VM, o *Operands) {
		vm.log.Debug("soundKludge", "args", o.List())
	}, ArgVarargs)
	setVariants(t, 0x52, 1, op("actorFollowCamera", func(vm *VM, o *Operands) {
		vm.setCameraFollows(vm.derefActor(o.I(0), "actorFollowCamera"))
	}, ArgP8))
	setVariants(t, 0x54, 1, op("setObjectName", func(vm *VM, o *Operands) {
		vm.setObjectName(o.I(0), o.Str())
	}, ArgP16, ArgString))
	setVariants(t, 0x56, 1, op("getActorMoving", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorMoving").Moving))
	}, ArgResult, ArgP8))
	t[0x58] = op("beginOverride", func(vm *VM, o *Operands) {
		if vm.fetchByte() != 0 {
			vm.beginOverride()
		} else {
			vm.endOverride()
		}
	})
	setVariants(t, 0x5D, 1, op("setClass", func(vm *VM, o *Operands) {
		for _, c := range o.List() {
			vm.SetClass(o.I(0), int(c))
		}
	}, ArgP16, ArgVarargs))
	setVariants(t, 0x60, 1, op("freezeScripts", func(vm *VM, o *Operands) {
		if o.I(0) != 0 {
			vm.FreezeScripts(o.I(0))
		} else {
			vm.UnfreezeScripts()
		}
	}, ArgP8))
	setVariants(t, 0x62, 1, op("stopScript", func(vm *VM, o *Operands) {
		if o.I(0) == 0 {
			vm.stopObjectCode()
		} else {
			vm.stopScript(o.I(0))
		}
	}, ArgP8))
	setVariants(t, 0x63, 1, op("getActorFacing", func(vm *VM, o *Operands) {
		vm.setResult(int32(actorOldDir(vm.derefActor(o.I(1), "getActorFacing"))))
	}, ArgResult, ArgP8))
	setVariants(t, 0x66, 1, op("getClosestObjActor", func(vm *VM, o *Operands) {
		obj := o.I(1)
		closest, best := 0xFF, 0xFF
		lo := max(int(vm.engineVar(vm.cfg.Vars.ActorRangeMin)), 1)
		hi := int(vm.engineVar(vm.cfg.Vars.ActorRangeMax))
		if hi <= 0 || hi >= len(vm.actors) {
			hi = len(vm.actors) - 1
		}
		for i := hi; i >= lo; i-- {
			if i == obj {
				continue
			}
			if d := vm.objActDist(obj, i); d < best {
				best, closest = d, i
			}
		}
		vm.setResult(int32(closest))
	}, ArgResult, ArgP16))
	setVariants(t, 0x67, 1, op("getStringWidth", func(vm *VM, o *Operands) {
		saved := vm.message
		vm.message = vm.strings[o.I(1)]
		w := vm.messageWidth(vm.textDef.Charset)
		vm.message = saved
		vm.setResult(int32(w))
	}, ArgResult, ArgP8))
	setVariants(t, 0x68, 1, op("isScriptRunning", func(vm *VM, o *Operands) {
		vm.setResult(boolVal(vm.IsScriptRunning(o.I(1))))
	}, ArgResult, ArgP8))
	setVariants(t, 0x6B, 1, op("debug", func(vm *VM, o *Operands) {
		vm.log.Debug("Script debug value", "value", o.V(0))
	}, ArgP16))
	setVariants(t, 0x6C, 1, op("getActorWidth", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorWidth").Width))
	}, ArgResult, ArgP8))
	setVariants(t, 0x6E, 1, op("stopObjectScript", func(vm *VM, o *Operands) {
		vm.stopObjectScript(o.I(0))
	}, ArgP16))
	setVariants(t, 0x70, 1, op("lights", func(vm *VM, o *Operands) {
		b, c := vm.fetchByte(), vm.fetchByte()
		if c == 0 {
			vm.setEngineVar(vm.cfg.Vars.CurrentLights, o.V(0))
		} else {
			vm.log.Debug("Flashlight size", "x_strips", o.V(0), "y_strips", b)
		}
	}, ArgP8))
	setVariants(t, 0x71, 1, op("getActorCostume", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorCostume").Costume))
	}, ArgResult, ArgP8))
	setVariants(t, 0x72, 1, op("loadRoom", func(vm *VM, o *Operands) {
		vm.startScene(o.I(0))
	}, ArgP8))
	setVariants(t, 0x7A, 1, op("verbOps", opVerbOpsV5, ArgP8))
	setVariants(t, 0x7B, 1, op("getActorWalkBox", func(vm *VM, o *Operands) {
		vm.setResult(int32(vm.derefActor(o.I(1), "getActorWalkBox").Box))
	}, ArgResult, ArgP8))
	setVariants(t, 0x7C, 1, op("isSoundRunning", func(vm *VM, o *Operands) {
		snd := o.I(1)
		vm.setResult(boolVal(snd != 0 && vm.sound.IsSoundRunning(snd)))
	}, ArgResult, ArgP8))
	t[0x98] = op("systemOps", func(vm *VM, o *Operands) {
		switch sub := vm.fetchByte(); sub {
		case 1:
			vm.restart()
		case 2:
			vm.log.Info("Pause requested")
		case 3:
			vm.quit = true
			vm.breakHere()
		default:
			vm.unsupported("systemOps", int(sub))
		}
	})
	t[0xAB] = op("saveRestoreVerbs", func(vm *VM, o *Operands) {
		vm.opcode = vm.fetchByte()
		kind := int(vm.opcode & 0x1F)
		a := int(vm.getVarOrDirectByte(0x80))
		b := int(vm.getVarOrDirectByte(0x40))
		c := int(vm.getVarOrDirectByte(0x20))
		if !vm.saveRestoreVerbs(kind, a, b, c) {
			vm.unsupported("saveRestoreVerbs", kind)
		}
	})
	t[0xAC] = op("expression", opExpression)
	t[0xAE] = op("wait", opWaitV5)
	t[0xCC] = op("pseudoRoom", func(vm *VM, o *Operands) {
		i := vm.fetchByte()
		for j := vm.fetchByte(); j != 0; j = vm.fetchByte() {
			if j >= 0x80 {
				vm.log.Debug("Pseudo room", "room", j&0x7F, "maps_to", i)
			}
		}
	})

	opcodesV4 = opcodesV5
	initV4(&opcodesV4)
}

// boolVal converts a test result to the 0/1 scripts expect.
func boolVal(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// initV4 patches the v3/v4 differences over the v5 table.
func initV4(t *[256]*opcode) {
	setVariants(t, 0x0F, 2, op("ifState", func(vm *VM, o *Operands) {
		vm.jumpUnless(vm.GetState(o.I(0)) == o.I(1), o.V(2))
	}, ArgP16, ArgP8, ArgWord))
	setVariants(t, 0x2F, 2, op("ifNotState", func(vm *VM, o *Operands) {
		vm.jumpUnless(vm.GetState(o.I(0)) != o.I(1), o.V(2))
	}, ArgP16, ArgP8, ArgWord))
	setVariants(t, 0x05, 3, op("drawObject", func(vm *VM, o *Operands) {
		vm.drawObject(o.I(0), 1)
	}, ArgP16, ArgP16, ArgP16))
	setVariants(t, 0x5C, 1, op("oldRoomEffect", func(vm *VM, o *Operands) {
		vm.opcode = vm.fetchByte()
		if vm.opcode&0x1F == 3 {
			effect := vm.getVarOrDirectWord(0x80)
			vm.log.Debug("Room fade effect", "effect", effect)
		}
	}))
	t[0x22] = op("saveLoadGame", func(vm *VM, o *Operands) {
		vm.setResult(vm.saveLoadGame(int(o.V(1))))
	}, ArgResult, ArgP8)
	t[0xA2] = op("saveLoadGame", t[0x22].exec, ArgResult, ArgP8)
}

// decodeParseStringV5 applies text-slot sub-commands until 0xFF or the
// text itself.
func (vm *VM) decodeParseStringV5(slot int) {
	ts := &vm.textDef.Slots[slot]
	ts.loadDefault()
	for {
		vm.opcode = vm.fetchByte()
		if vm.opcode == 0xFF {
			break
		}
		switch vm.opcode & 0xF {
		case 0:
			ts.X = int(vm.getVarOrDirectWord(0x80))
			ts.Y = int(vm.getVarOrDirectWord(0x40))
			ts.Overhead = false
		case 1:
			ts.Color = int(vm.getVarOrDirectByte(0x80))
		case 2:
			ts.Right = int(vm.getVarOrDirectWord(0x80))
		case 3:
			w, h := vm.getVarOrDirectWord(0x80), vm.getVarOrDirectWord(0x40)
			vm.log.Debug("Text erase", "w", w, "h", h)
		case 4:
			ts.Center = true
			ts.Overhead = false
		case 6:
			if vm.cfg.Version <= 3 {
				vm.getVarOrDirectWord(0x80)
			}
			ts.Center = false
			ts.Overhead = false
		case 7:
			ts.Overhead = true
		case 8:
			off, delay := vm.getVarOrDirectWord(0x80), vm.getVarOrDirectWord(0x40)
			vm.log.Debug("Talk voice", "offset", off, "delay", delay)
		case 15:
			vm.printString(slot, vm.fetchMessage())
			if vm.cfg.Version <= 3 {
				ts.saveDefault()
			}
			return
		default:
			vm.unsupported("print", int(vm.opcode&0xF))
		}
	}
	ts.saveDefault()
}

func opActorOpsV5(vm *VM, o *Operands) {
	a := vm.derefActor(o.I(0), "actorOps")
	for {
		vm.opcode = vm.fetchByte()
		if vm.opcode == 0xFF {
			return
		}
		p8 := func(mask byte) int { return int(vm.getVarOrDirectByte(mask)) }
		switch vm.opcode & 0x1F {
		case 0:
			p8(0x80)
		case 1:
			vm.setActorCostume(a, p8(0x80))
		case 2:
			a.SpeedX = p8(0x80)
			a.SpeedY = p8(0x40)
		case 3:
			a.Sounds[0] = p8(0x80)
		case 4:
			a.WalkFrame = uint8(p8(0x80))
		case 5:
			a.TalkStartFrame = uint8(p8(0x80))
			a.TalkStopFrame = uint8(p8(0x40))
		case 6:
			a.StandFrame = uint8(p8(0x80))
		case 7:
			p8(0x80)
			p8(0x40)
			p8(0x20)
		case 8:
			a.initActor(vm.cfg.Version)
		case 9:
			a.Elevation = int(vm.getVarOrDirectWord(0x80))
			a.needRedraw = true
		case 10:
			a.InitFrame, a.WalkFrame, a.StandFrame = 1, 2, 3
			a.TalkStartFrame, a.TalkStopFrame = 4, 5
		case 11:
			i, j := p8(0x80), p8(0x40)
			if i >= 0 && i < len(a.Palette) {
				a.Palette[i] = uint8(j)
			}
			a.needRedraw = true
		case 12:
			a.TalkColor = p8(0x80)
		case 13:
			a.Name = string(vm.fetchMessage())
		case 14:
			a.InitFrame = uint8(p8(0x80))
		case 16:
			a.Width = p8(0x80)
		case 17:
			a.ScaleX = p8(0x80)
			a.ScaleY = p8(0x40)
			a.needRedraw = true
		case 18:
			a.ForceClip = 0
		case 19:
			a.ForceClip = p8(0x80)
		case 20:
			a.IgnoreBoxes = true
			a.ForceClip = 0
			if vm.inCurrentRoom(a) {
				vm.putActor(a, a.X, a.Y, a.Room)
			}
		case 21:
			a.IgnoreBoxes = false
			a.ForceClip = 0
			if vm.inCurrentRoom(a) {
				vm.putActor(a, a.X, a.Y, a.Room)
			}
		case 22:
			a.AnimSpeed = p8(0x80)
			a.animProgress = 0
		case 23:
			vm.actorLog().Debug("Actor shadow mode", "actor", a.Number, "mode", p8(0x80))
		default:
			vm.unsupported("actorOps", int(vm.opcode&0x1F))
		}
	}
}

func opVerbOpsV5(vm *VM, o *Operands) {
	verb := o.I(0)
	slot := vm.verbSlot(verb, 0)
	for {
		vm.opcode = vm.fetchByte()
		if vm.opcode == 0xFF {
			break
		}
		v := &vm.verbs[slot]
		switch vm.opcode & 0x1F {
		case 1:
			v.Image = int(vm.getVarOrDirectWord(0x80))
		case 2:
			v.Name = append([]byte(nil), vm.fetchMessage()...)
			v.Image = 0
		case 3:
			v.Color = int(vm.getVarOrDirectByte(0x80))
		case 4:
			v.HiColor = int(vm.getVarOrDirectByte(0x80))
		case 5:
			v.X = int(vm.getVarOrDirectWord(0x80))
			v.Y = int(vm.getVarOrDirectWord(0x40))
		case 6:
			v.Mode = verbOn
		case 7:
			v.Mode = verbOff
		case 8:
			vm.killVerb(slot)
		case 9:
			slot = vm.newVerb(verb)
		case 16:
			v.DimColor = int(vm.getVarOrDirectByte(0x80))
		case 17:
			v.Mode = verbDim
		case 18:
			v.Key = int(vm.getVarOrDirectByte(0x80))
		case 19:
			v.Center = true
		case 20:
			id := int(vm.getVarOrDirectWord(0x80))
			v.Name = append([]byte(nil), vm.strings[id]...)
			v.Image = 0
		case 22:
			v.Image = int(vm.getVarOrDirectWord(0x80))
			vm.getVarOrDirectByte(0x40)
		case 23:
			v.BkColor = int(vm.getVarOrDirectByte(0x80))
		default:
			vm.unsupported("verbOps", int(vm.opcode&0x1F))
		}
	}
	if slot != 0 {
		vm.display.MarkDirty(vm.verbs[slot].rect())
	}
}

func opRoomOpsV5(vm *VM, o *Operands) {
	vm.opcode = vm.fetchByte()
	w := func(mask byte) int { return int(vm.getVarOrDirectWord(mask)) }
	b := func(mask byte) int { return int(vm.getVarOrDirectByte(mask)) }
	switch vm.opcode & 0x1F {
	case 1:
		lo, hi := w(0x80), w(0x40)
		vm.setCameraRange(lo, hi)
	case 3:
		top, bottom := w(0x80), w(0x40)
		vm.log.Debug("Screen split", "top", top, "bottom", bottom)
	case 4:
		r, g, bl := w(0x80), w(0x40), w(0x20)
		vm.opcode = vm.fetchByte()
		vm.setPalColor(b(0x80), r, g, bl)
	case 5, 6:
		vm.log.Debug("Screen shake", "on", vm.opcode&0x1F == 5)
	case 7:
		s1, y1 := b(0x80), b(0x40)
		vm.opcode = vm.fetchByte()
		s2, y2 := b(0x80), b(0x40)
		vm.opcode = vm.fetchByte()
		slot := b(0x80)
		vm.setScaleSlot(slot, s1, y1, s2, y2)
	case 8:
		scale, start, end := b(0x80), b(0x40), b(0x20)
		vm.darkenPalette(scale, scale, scale, start, end)
	case 9:
		flag, slot := b(0x80), b(0x40)
		vm.requestSaveLoad(flag, slot)
	case 10:
		effect := w(0x80)
		vm.log.Debug("Screen effect", "effect", effect)
	case 11:
		r, g, bl := w(0x80), w(0x40), w(0x20)
		vm.opcode = vm.fetchByte()
		start, end := b(0x80), b(0x40)
		vm.darkenPalette(r, g, bl, start, end)
	case 12:
		w(0x80)
		w(0x40)
		w(0x20)
		vm.opcode = vm.fetchByte()
		b(0x80)
		b(0x40)
	case 13, 14:
		b(0x80)
		vm.fetchMessage()
	case 15:
		b(0x80)
		vm.opcode = vm.fetchByte()
		b(0x80)
		b(0x40)
		vm.opcode = vm.fetchByte()
		b(0x80)
	case 16:
		idx, rate := b(0x80), b(0x40)
		if idx < 1 || idx > len(vm.cycles) {
			vm.faultf(ErrorVariableRange, "colour cycle %d out of range", idx)
		}
		if rate != 0 {
			vm.cycles[idx-1].Delay = 16384 / rate
		} else {
			vm.cycles[idx-1].Delay = 0
		}
	default:
		vm.unsupported("roomOps", int(vm.opcode&0x1F))
	}
}

func opCursorCommandV5(vm *VM, o *Operands) {
	vm.opcode = vm.fetchByte()
	switch vm.opcode & 0x1F {
	case 1:
		vm.cursorState = 1
	case 2:
		vm.cursorState = 0
	case 3:
		vm.userPut = 1
	case 4:
		vm.userPut = 0
	case 5:
		vm.cursorState++
	case 6:
		vm.cursorState--
	case 7:
		vm.userPut++
	case 8:
		vm.userPut--
	case 10:
		vm.getVarOrDirectByte(0x80)
		vm.getVarOrDirectByte(0x40)
	case 11:
		vm.getVarOrDirectByte(0x80)
		vm.getVarOrDirectByte(0x40)
		vm.getVarOrDirectByte(0x20)
	case 12:
		vm.getVarOrDirectByte(0x80)
	case 13:
		vm.textDef.Charset = int(vm.getVarOrDirectByte(0x80))
	case 14:
		vm.getWordVararg()
	default:
		vm.unsupported("cursorCommand", int(vm.opcode&0x1F))
	}
	vm.publishCursor()
}

func opResourceRoutinesV5(vm *VM, o *Operands) {
	vm.opcode = vm.fetchByte()
	sub := int(vm.opcode & 0x3F)
	var id int
	if sub != 17 {
		id = int(vm.getVarOrDirectByte(0x80))
	}
	vm.resourceRoutine(sub, id)
	if sub == 20 {
		vm.getVarOrDirectWord(0x40)
	}
}

// resourceRoutine handles the v5 resource sub-commands. Loads are checked
// eagerly; locks and nukes are bookkeeping the cache does not need.
func (vm *VM) resourceRoutine(sub, id int) {
	switch sub {
	case 1:
		if _, err := vm.res.GetScript(id); err != nil {
			vm.resourceFault("script", id, err)
		}
	case 2, 6, 10, 14:
		vm.log.Debug("Sound resource request", "sub", sub, "id", id)
	case 3:
		if _, err := vm.res.GetCostume(id); err != nil {
			vm.resourceFault("costume", id, err)
		}
	case 4:
		if _, err := vm.res.GetRoom(id); err != nil {
			vm.resourceFault("room", id, err)
		}
	case 18:
		if _, err := vm.res.GetCharset(id); err != nil {
			vm.resourceFault("charset", id, err)
		}
	case 5, 7, 8, 9, 11, 12, 13, 15, 16, 17, 19, 20:
		vm.log.Debug("Resource bookkeeping", "sub", sub, "id", id)
	default:
		vm.unsupported("resourceRoutines", sub)
	}
}

func opStringOpsV5(vm *VM, o *Operands) {
	vm.opcode = vm.fetchByte()
	switch vm.opcode & 0x1F {
	case 1:
		id := int(vm.getVarOrDirectByte(0x80))
		vm.strings[id] = append([]byte(nil), vm.fetchMessage()...)
	case 2:
		a := int(vm.getVarOrDirectByte(0x80))
		b := int(vm.getVarOrDirectByte(0x40))
		vm.strings[a] = append([]byte(nil), vm.strings[b]...)
	case 3:
		id := int(vm.getVarOrDirectByte(0x80))
		idx := int(vm.getVarOrDirectByte(0x40))
		ch := vm.getVarOrDirectByte(0x20)
		s := vm.strings[id]
		if idx < 0 || idx >= len(s) {
			vm.faultf(ErrorArrayBounds, "string %d index %d outside %d bytes", id, idx, len(s))
		}
		s[idx] = byte(ch)
	case 4:
		vm.getResultPos()
		id := int(vm.getVarOrDirectByte(0x80))
		idx := int(vm.getVarOrDirectByte(0x40))
		s := vm.strings[id]
		if idx < 0 || idx >= len(s) {
			vm.faultf(ErrorArrayBounds, "string %d index %d outside %d bytes", id, idx, len(s))
		}
		vm.setResult(int32(s[idx]))
	case 5:
		id := int(vm.getVarOrDirectByte(0x80))
		size := int(vm.getVarOrDirectByte(0x40))
		vm.strings[id] = make([]byte, size)
	default:
		vm.unsupported("stringOps", int(vm.opcode&0x1F))
	}
}

// opExpression evaluates a postfix expression on the value stack into the
// result variable. Sub-op 6 runs a nested instruction and pushes var 0.
func opExpression(vm *VM, o *Operands) {
	vm.stack = vm.stack[:0]
	vm.getResultPos()
	dst := vm.resultVar
	for {
		vm.opcode = vm.fetchByte()
		if vm.opcode == 0xFF {
			break
		}
		switch vm.opcode & 0x1F {
		case 1:
			vm.push(vm.getVarOrDirectWord(0x80))
		case 2:
			i := vm.pop()
			vm.push(vm.pop() + i)
		case 3:
			i := vm.pop()
			vm.push(vm.pop() - i)
		case 4:
			i := vm.pop()
			vm.push(vm.pop() * i)
		case 5:
			i := vm.pop()
			if i == 0 {
				vm.fault(NewDivisionByZeroError())
			}
			vm.push(vm.pop() / i)
		case 6:
			vm.opcode = vm.fetchByte()
			vm.executeOpcode(vm.opcode)
			vm.push(vm.vars[0])
		default:
			vm.unsupported("expression", int(vm.opcode&0x1F))
		}
	}
	vm.resultVar = dst
	vm.setResult(vm.pop())
}

// opWaitV5 re-runs itself next tick while the awaited condition holds.
func opWaitV5(vm *VM, o *Operands) {
	start := vm.pc - 1
	vm.opcode = vm.fetchByte()
	switch vm.opcode & 0x1F {
	case 1:
		a := vm.derefActor(int(vm.getVarOrDirectByte(0x80)), "wait")
		if a.Moving == 0 {
			return
		}
	case 2:
		if vm.engineVar(vm.cfg.Vars.HaveMsg) == 0 {
			return
		}
	case 3:
		if vm.cameraSettled() {
			return
		}
	case 4:
		if !vm.waitingForSentence() {
			return
		}
	default:
		vm.unsupported("wait", int(vm.opcode&0x1F))
	}
	vm.pc = start
	vm.breakHere()
}
