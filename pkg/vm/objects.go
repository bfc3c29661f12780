package vm

import (
	"github.com/zurustar/scumm-et/pkg/resource"
)

// ownerRoom is the owner value of objects that lie in a room.
const ownerRoom = 0x0F

// classUntouchable is set on objects the player picked up.
const classUntouchable = 32

func (vm *VM) checkObject(obj int) {
	if obj < 1 || obj >= len(vm.owners) {
		vm.faultf(ErrorVariableRange, "object %d out of range (limit %d)", obj, len(vm.owners))
	}
}

// GetOwner returns obj's owner. Out-of-range objects are owned by nobody.
func (vm *VM) GetOwner(obj int) int {
	if obj < 1 || obj >= len(vm.owners) {
		return 0
	}
	return int(vm.owners[obj])
}

func (vm *VM) putOwner(obj, owner int) {
	vm.checkObject(obj)
	vm.owners[obj] = uint8(owner)
}

// GetState returns obj's state byte.
func (vm *VM) GetState(obj int) int {
	if obj < 1 || obj >= len(vm.states) {
		return 0
	}
	return int(vm.states[obj])
}

// objectRoom returns the room an object's code lives in, from the index.
func (vm *VM) objectRoom(obj int) int {
	if obj < 1 || obj >= len(vm.objRooms) {
		return 0
	}
	return int(vm.objRooms[obj])
}

func (vm *VM) putState(obj, state int) {
	vm.checkObject(obj)
	vm.states[obj] = uint8(state)
}

// ClassOf reports whether obj has class cls (1..32; bit 7 ignored).
func (vm *VM) ClassOf(obj, cls int) bool {
	cls &= 0x7F
	if obj < 1 || obj >= len(vm.classes) || cls < 1 || cls > 32 {
		return false
	}
	return vm.classes[obj]&(1<<(cls-1)) != 0
}

// SetClass applies one class-list entry: 0 clears every class, otherwise
// bit 7 selects set or clear.
func (vm *VM) SetClass(obj, cls int) {
	vm.checkObject(obj)
	c := cls & 0x7F
	if c == 0 {
		vm.classes[obj] = 0
		return
	}
	vm.putClass(obj, c, cls&0x80 != 0)
}

func (vm *VM) putClass(obj, cls int, set bool) {
	vm.checkObject(obj)
	cls &= 0x7F
	if cls < 1 || cls > 32 {
		vm.faultf(ErrorVariableRange, "object class %d out of range", cls)
	}
	if set {
		vm.classes[obj] |= 1 << (cls - 1)
	} else {
		vm.classes[obj] &^= 1 << (cls - 1)
	}
}

// classesMatch tests a class list: entries with bit 7 must be set,
// entries without it must be clear.
func (vm *VM) classesMatch(obj int, list []int32) bool {
	for _, c := range list {
		has := vm.ClassOf(obj, int(c))
		if c&0x80 != 0 && !has || c&0x80 == 0 && has {
			return false
		}
	}
	return true
}

// whereIsObject finds where obj's code can be run from.
func (vm *VM) whereIsObject(obj int) Where {
	if obj < 1 || obj >= len(vm.owners) {
		return WhereNotFound
	}
	if vm.owners[obj] != ownerRoom {
		for _, o := range vm.inv {
			if o == obj {
				return WhereInventory
			}
		}
		return WhereNotFound
	}
	if vm.room != nil && vm.room.Object(obj) != nil {
		return WhereRoom
	}
	return WhereNotFound
}

// objectEntry returns the code and entry offset of obj's verb handler.
func (vm *VM) objectEntry(obj int, where Where, verb int) ([]byte, int, bool) {
	var o *resource.Object
	switch where {
	case WhereRoom, WhereFLObject:
		if vm.room != nil {
			o = vm.room.Object(obj)
		}
	case WhereInventory:
		o = vm.invCode[obj]
	}
	if o == nil {
		return nil, 0, false
	}
	off, ok := o.VerbOffset(verb)
	if !ok {
		return nil, 0, false
	}
	return o.Code, off, true
}

// objectHasVerb reports whether obj handles verb.
func (vm *VM) objectHasVerb(obj, verb int) bool {
	_, _, ok := vm.objectEntry(obj, vm.whereIsObject(obj), verb)
	return ok
}

// addObjectToInventory puts obj into the first free inventory slot and
// keeps a copy of its code so it can run outside its room.
func (vm *VM) addObjectToInventory(obj int) {
	if vm.room != nil {
		if o := vm.room.Object(obj); o != nil {
			vm.invCode[obj] = o
		}
	}
	for i, o := range vm.inv {
		if o == 0 {
			vm.inv[i] = obj
			return
		}
	}
	vm.faultf(ErrorSlotExhausted, "inventory full (%d objects)", len(vm.inv))
}

func (vm *VM) removeFromInventory(obj int) {
	for i, o := range vm.inv {
		if o == obj {
			copy(vm.inv[i:], vm.inv[i+1:])
			vm.inv[len(vm.inv)-1] = 0
			delete(vm.invCode, obj)
			return
		}
	}
}

// InventoryCount returns how many objects owner holds.
func (vm *VM) InventoryCount(owner int) int {
	n := 0
	for _, o := range vm.inv {
		if o != 0 && vm.GetOwner(o) == owner {
			n++
		}
	}
	return n
}

// FindInventory returns owner's idx-th object (1-based), or 0.
func (vm *VM) FindInventory(owner, idx int) int {
	n := 0
	for _, o := range vm.inv {
		if o != 0 && vm.GetOwner(o) == owner {
			n++
			if n == idx {
				return o
			}
		}
	}
	return 0
}

// pickupObject moves obj into the ego's inventory.
func (vm *VM) pickupObject(obj int) {
	vm.checkObject(obj)
	if vm.whereIsObject(obj) != WhereInventory {
		vm.addObjectToInventory(obj)
	}
	vm.putOwner(obj, int(vm.engineVar(vm.cfg.Vars.Ego)))
	vm.putClass(obj, classUntouchable, true)
	vm.putState(obj, 1)
	vm.runInventoryScript(1)
}

// setOwnerOf changes obj's owner. Owner 0 drops it from the inventory.
func (vm *VM) setOwnerOf(obj, owner int) {
	vm.checkObject(obj)
	if owner == 0 {
		vm.removeFromInventory(obj)
		vm.stopObjectScript(obj)
	} else if vm.whereIsObject(obj) != WhereInventory && owner != ownerRoom {
		vm.addObjectToInventory(obj)
	}
	vm.putOwner(obj, owner)
	vm.runInventoryScript(0)
}

func (vm *VM) runInventoryScript(arg int32) {
	if n := vm.engineVar(vm.cfg.Vars.InventoryScript); n != 0 {
		vm.runScript(int(n), false, false, []int32{arg})
	}
}

// objectName returns the display name of an actor or object.
func (vm *VM) objectName(obj int) []byte {
	if obj > 0 && obj < len(vm.actors) {
		return []byte(vm.actors[obj].Name)
	}
	if n, ok := vm.newNames[obj]; ok {
		return n
	}
	if o := vm.invCode[obj]; o != nil {
		return []byte(o.Name)
	}
	if vm.room != nil {
		if o := vm.room.Object(obj); o != nil {
			return []byte(o.Name)
		}
	}
	return nil
}

// setObjectName renames an object for the rest of the session.
func (vm *VM) setObjectName(obj int, name []byte) {
	if obj > 0 && obj < len(vm.actors) {
		vm.faultf(ErrorVariableRange, "cannot rename actor %d as an object", obj)
	}
	vm.newNames[obj] = append([]byte(nil), name...)
}

// objectPosition returns an object's walk target in the current room.
func (vm *VM) objectPosition(obj int) (x, y int, ok bool) {
	if obj > 0 && obj < len(vm.actors) {
		a := vm.actors[obj]
		return a.X, a.Y, true
	}
	if vm.room == nil {
		return 0, 0, false
	}
	o := vm.room.Object(obj)
	if o == nil {
		return 0, 0, false
	}
	return o.X, o.Y, true
}

// findObject returns the topmost room object under (x, y), or 0.
func (vm *VM) findObject(x, y int) int {
	if vm.room == nil {
		return 0
	}
	for i := len(vm.room.Objects) - 1; i >= 0; i-- {
		o := vm.room.Objects[i]
		if vm.ClassOf(o.ID, classUntouchable) || !vm.parentsAllow(o) {
			continue
		}
		if x >= o.X && x < o.X+o.Width && y >= o.Y && y < o.Y+o.Height {
			return o.ID
		}
	}
	return 0
}

// parentsAllow walks o's parent chain and reports whether every parent is
// in the state its child needs. Only the low four state bits count.
func (vm *VM) parentsAllow(o *resource.Object) bool {
	objs := vm.room.Objects
	for range objs {
		if o.Parent == 0 {
			return true
		}
		if o.Parent > len(objs) {
			return false
		}
		p := objs[o.Parent-1]
		if vm.GetState(p.ID)&0xF != o.ParentState {
			return false
		}
		o = p
	}
	// 親の連鎖が循環している
	return false
}
