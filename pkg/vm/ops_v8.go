package vm

import "image"

// opcodesV8 is the v8 stack dialect. The instructions are the v6/v7 ones
// renumbered, with dword inline operands and their own sub-op numbering.
var opcodesV8 [256]*opcode

func initV8(t *[256]*opcode) {
	v6, v7 := &opcodesV6, &opcodesV7

	t[0x01] = v6[0x01]
	t[0x02] = v6[0x03]
	t[0x03] = v6[0x07]
	t[0x04] = v6[0x0B]
	t[0x05] = v6[0x0C]
	t[0x06] = v6[0x1A]
	t[0x07] = v6[0x0D]
	for i := range 12 {
		t[0x08+i] = v6[0x0E+i]
	}
	t[0x14] = v6[0xD6]
	t[0x15] = v6[0xD7]
	t[0x16] = op("mod", func(vm *VM, o *Operands) {
		if o.V(1) == 0 {
			vm.fault(NewDivisionByZeroError())
		}
		vm.push(o.V(0) % o.V(1))
	}, ArgPop, ArgPop)

	t[0x64] = v6[0x5C]
	t[0x65] = v6[0x5D]
	t[0x66] = v6[0x73]
	t[0x67] = v6[0x6C]
	t[0x68] = v6[0xCA]
	t[0x69] = op("wait", waitOpsWith(waitSubsV8))
	t[0x6A] = v6[0xB0]
	t[0x6B] = v6[0xB1]
	t[0x6C] = v6[0xB2]
	t[0x6D] = v6[0x43]
	t[0x6E] = v6[0x4F]
	t[0x6F] = v6[0x57]
	t[0x70] = op("dimArray", dimOpsWith(dimSubsV8, false))
	t[0x71] = v6[0x47]
	t[0x72] = v6[0x53]
	t[0x73] = v6[0x5B]
	t[0x74] = op("dim2dimArray", dimOpsWith(dimSubsV8, true))
	t[0x75] = v6[0x4B]
	t[0x76] = op("arrayOps", arrayOpsWith(arraySubsV8))

	t[0x79] = v6[0x5E]
	t[0x7A] = v6[0x5F]
	t[0x7B] = v6[0x65]
	t[0x7C] = v6[0x7C]
	t[0x7D] = v6[0xD5]
	t[0x7E] = v6[0xBD]
	t[0x7F] = v6[0x60]
	t[0x80] = v6[0x77]
	t[0x81] = v6[0x68]
	t[0x82] = v6[0x67]
	t[0x83] = v6[0x6A]
	t[0x84] = v6[0x95]
	t[0x85] = v6[0x96]
	t[0x86] = v6[0xB3]
	t[0x89] = v6[0x6E]
	t[0x8A] = v6[0x70]
	t[0x8B] = v6[0x71]
	t[0x8C] = v7[0x78]
	t[0x8D] = v6[0x79]
	t[0x8E] = v7[0x7A]

	t[0x8F] = op("printActor", printOpsWith(slotTalk, popActor, printSubsV8))
	t[0x90] = op("printEgo", printOpsWith(slotTalk, egoActor, printSubsV8))
	t[0x91] = v6[0xBA]
	t[0x92] = v6[0xBB]
	t[0x93] = op("printLine", printOpsWith(slotTalk, nil, printSubsV8))
	t[0x94] = op("printText", printOpsWith(slotPrint, nil, printSubsV8))
	t[0x95] = op("printDebug", printOpsWith(slotDebug, nil, printSubsV8))
	t[0x96] = op("printSystem", printOpsWith(slotSystem, nil, printSubsV8))
	t[0x97] = op("blastText", printOpsWith(slotPrint, nil, printSubsV8))
	t[0x98] = op("drawObject", func(vm *VM, o *Operands) {
		state := o.I(3)
		if state == 0 {
			state = 1
		}
		vm.log.Debug("drawObject at", "object", o.I(0), "x", o.I(1), "y", o.I(2))
		vm.drawObject(o.I(0), state)
	}, ArgPop, ArgPop, ArgPop, ArgPop)

	t[0x9C] = op("cursorCommand", cursorOpsWith(cursorSubsV8))
	t[0x9D] = v6[0x7B]
	t[0x9E] = v7[0x85]
	t[0x9F] = v6[0x7D]
	t[0xA0] = v6[0x7E]
	t[0xA1] = v6[0x7F]
	t[0xA2] = v6[0x80]
	t[0xA3] = v6[0x81]
	t[0xA4] = v6[0x82]
	t[0xA5] = op("doSentence", func(vm *VM, o *Operands) {
		vm.doSentence(o.I(0), o.I(1), o.I(2))
	}, ArgPop, ArgPop, ArgPop)
	t[0xA6] = v7[0x84]
	t[0xA7] = v6[0x99]
	t[0xA8] = v6[0x9A]
	t[0xAA] = op("resourceRoutines", resourceOpsWith(resourceSubsV8))
	t[0xAB] = op("roomOps", opRoomOpsV8)
	t[0xAC] = op("actorOps", actorOpsWith(actorSubsV8))
	t[0xAD] = op("cameraOps", func(vm *VM, o *Operands) {
		switch sub := vm.fetchByte(); sub {
		case 0x32, 0x33:
			vm.log.Debug("Camera pause", "paused", sub == 0x32)
		default:
			vm.unsupported("cameraOps", int(sub))
		}
	})
	t[0xAE] = op("verbOps", verbOpsWith(verbSubsV8))

	t[0xAF] = v6[0x74]
	t[0xB0] = v6[0x76]
	t[0xB1] = v6[0x75]
	t[0xB2] = v6[0xAC]
	t[0xB3] = op("systemOps", systemOpsWith(systemSubsV8))
	t[0xB4] = op("saveRestoreVerbs", func(vm *VM, o *Operands) {
		sub := int(vm.fetchByte())
		if !vm.saveRestoreVerbs(sub-0xB3, o.I(0), o.I(1), o.I(2)) {
			vm.unsupported("saveRestoreVerbs", sub)
		}
	}, ArgPop, ArgPop, ArgPop)
	t[0xB5] = v6[0x97]
	t[0xB7] = v6[0xA6]
	t[0xB9] = op("startVideo", func(vm *VM, o *Operands) {
		vm.log.Warn("Video playback not available", "name", string(o.Str()))
	}, ArgString)
	t[0xBA] = op("kernelSetFunctions", opKernelSetV8, ArgPopList)

	t[0xC8] = v6[0xBF]
	t[0xC9] = v6[0xBE]
	t[0xCA] = v6[0xCB]
	t[0xCB] = v6[0xCC]
	t[0xCD] = v6[0xAD]
	t[0xCE] = v6[0x87]
	t[0xCF] = v6[0x88]
	t[0xD0] = v6[0x6D]
	t[0xD1] = v6[0x6F]
	t[0xD2] = v6[0x72]
	t[0xD3] = v6[0x8B]
	t[0xD5] = v6[0x98]
	t[0xD6] = v6[0xC4]
	t[0xD8] = op("kernelGetFunctions", opKernelGetV8, ArgPopList)
	t[0xD9] = v6[0xAF]
	t[0xDA] = v6[0xA3]
	t[0xDB] = v6[0x9F]
	t[0xDC] = v6[0xA0]
	t[0xDD] = v6[0x94]
	t[0xDF] = v6[0x92]
	t[0xE0] = v6[0x93]
	t[0xE1] = v6[0xD2]

	t[0xE2] = v6[0x8C]
	t[0xE3] = v6[0x90]
	t[0xE4] = v6[0x8A]
	t[0xE5] = v6[0x91]
	t[0xE6] = v6[0xAA]
	t[0xE7] = v6[0xEC]
	t[0xE8] = v6[0xA2]
	t[0xE9] = v6[0xA8]
	t[0xEA] = v6[0xED]
	t[0xEB] = v6[0x8D]
	t[0xEC] = v6[0x8E]
	t[0xED] = op("getActorChore", func(vm *VM, o *Operands) {
		vm.push(int32(vm.derefActor(o.I(0), "getActorChore").Frame))
	}, ArgPop)
	t[0xEE] = v6[0xC5]
	t[0xEF] = v6[0xC6]
	t[0xF0] = v6[0xC7]

	objRect := func(name string, f func(r image.Rectangle) int) *opcode {
		return op(name, func(vm *VM, o *Operands) {
			vm.push(int32(f(vm.roomObjectRect(o.I(0)))))
		}, ArgPop)
	}
	t[0xF1] = objRect("getObjectImageX", func(r image.Rectangle) int { return r.Min.X })
	t[0xF2] = objRect("getObjectImageY", func(r image.Rectangle) int { return r.Min.Y })
	t[0xF3] = objRect("getObjectImageWidth", func(r image.Rectangle) int { return r.Dx() })
	t[0xF4] = objRect("getObjectImageHeight", func(r image.Rectangle) int { return r.Dy() })
	t[0xF5] = op("getStringWidth", func(vm *VM, o *Operands) {
		vm.push(int32(vm.stringWidth(o.I(0), o.Str())))
	}, ArgPop, ArgString)
	t[0xF6] = op("getActorZPlane", func(vm *VM, o *Operands) {
		vm.push(int32(vm.derefActor(o.I(0), "getActorZPlane").ForceClip))
	}, ArgPop)
}

// stringWidth measures msg in pixels with a charset, 0 if it is missing.
func (vm *VM) stringWidth(charset int, msg []byte) int {
	cs, err := vm.res.GetCharset(charset)
	if err != nil || cs == nil {
		return 0
	}
	return cs.StringWidth(vm.convertMessage(msg))
}

func opRoomOpsV8(vm *VM, o *Operands) {
	sub := vm.fetchByte()
	switch sub {
	case 0x52:
		end, start, b, a := vm.pop(), vm.pop(), vm.pop(), vm.pop()
		vm.log.Debug("Room palette", "a", a, "b", b, "start", start, "end", end)
	case 0x57:
		vm.log.Debug("Screen fade")
	case 0x58:
		end, start, b, g, r := int(vm.pop()), int(vm.pop()), int(vm.pop()), int(vm.pop()), int(vm.pop())
		vm.darkenPalette(r, g, b, start, end)
	case 0x59:
		for range 5 {
			vm.pop()
		}
		vm.log.Debug("Palette transform")
	case 0x5C:
		vm.log.Debug("Alternate room palette", "palette", vm.pop())
	case 0x5D:
		vm.requestSaveLoad(1, 1)
	case 0x5E:
		vm.requestSaveLoad(2, int(vm.pop()))
	case 0x5F:
		for range 8 {
			vm.pop()
		}
		vm.log.Debug("Palette saturation")
	default:
		vm.unsupported("roomOps", int(sub))
	}
}

func opKernelSetV8(vm *VM, o *Operands) {
	args := append(o.List(), 0, 0, 0, 0, 0, 0)
	switch args[0] {
	case 11, 12:
		vm.log.Debug("Resource lock request", "function", args[0], "type", args[1], "id", args[2])
	case 20:
		vm.setBoxScale(int(args[1]), 0x8000|int(args[2]))
	case 21:
		vm.setScaleSlot(int(args[1]), int(args[2]), int(args[3]), int(args[4]), int(args[5]))
	case 24:
		vm.stopTalk()
	case 29:
		vm.killAllScriptsButMe()
	case 13, 14, 15, 16, 17, 18, 19, 22, 23, 25, 26, 27, 28, 30, 31:
		vm.log.Debug("Presentation request", "function", args[0], "args", o.List()[1:])
	default:
		vm.unsupported("kernelSetFunctions", int(args[0]))
	}
}

func opKernelGetV8(vm *VM, o *Operands) {
	args := append(o.List(), 0, 0, 0, 0)
	switch args[0] {
	case 0x73:
		vm.push(int32(vm.specialBox(int(args[1]), int(args[2]))))
	case 0x74:
		vm.push(boolVal(vm.boxContains(int(args[3]), int(args[1]), int(args[2]))))
	default:
		vm.unsupported("kernelGetFunctions", int(args[0]))
	}
}

// killAllScriptsButMe stops every running script except the caller.
func (vm *VM) killAllScriptsButMe() {
	for i := range vm.slots {
		if i != vm.current && vm.slots[i].Status != StatusDead {
			vm.killSlot(i)
		}
	}
}
