package vm

// CameraMode is how the camera chooses its destination.
type CameraMode int

const (
	CameraNormal      CameraMode = 1
	CameraFollowActor CameraMode = 2
	CameraPanning     CameraMode = 3
)

// Camera is the horizontal (and for v7+ vertical) view position.
type Camera struct {
	CurX, CurY    int
	DestX, DestY  int
	LastX, LastY  int
	Mode          CameraMode
	Follows       int
	MovingToActor bool
	LeftTrigger   int
	RightTrigger  int
}

// CameraX returns the camera centre.
func (vm *VM) CameraX() int {
	return vm.camera.CurX
}

func (vm *VM) cameraMin() int {
	if n := vm.cfg.Vars.CameraMinX; n != NoVar {
		return int(vm.engineVar(n))
	}
	return vm.cfg.ScreenWidth / 2
}

func (vm *VM) cameraMax() int {
	if n := vm.cfg.Vars.CameraMaxX; n != NoVar {
		return int(vm.engineVar(n))
	}
	if vm.room != nil {
		return vm.room.Width - vm.cfg.ScreenWidth/2
	}
	return vm.cfg.ScreenWidth / 2
}

// setCameraAt moves the camera to x at once.
func (vm *VM) setCameraAt(x, y int) {
	c := &vm.camera
	if c.Mode != CameraFollowActor || abs(x-c.CurX) > vm.cfg.ScreenWidth/2 {
		c.CurX = x
	}
	c.DestX = x
	c.CurY, c.DestY = y, y
	c.CurX = max(min(c.CurX, vm.cameraMax()), vm.cameraMin())
	vm.cameraMoved()
	if c.CurX != c.LastX {
		vm.runScrollScript()
		if vm.engineVar(vm.cfg.Vars.HaveMsg) != 0 {
			vm.stopTalk()
		}
	}
}

// panCameraTo scrolls the camera towards x over the next ticks.
func (vm *VM) panCameraTo(x, y int) {
	c := &vm.camera
	c.DestX, c.DestY = x, y
	c.Mode = CameraPanning
	c.MovingToActor = false
}

// setCameraFollows makes the camera track an actor, switching rooms if
// the actor is elsewhere.
func (vm *VM) setCameraFollows(a *Actor) {
	c := &vm.camera
	c.Mode = CameraFollowActor
	c.Follows = a.Number
	if !vm.inCurrentRoom(a) {
		vm.startScene(a.Room)
		c.Mode = CameraFollowActor
		c.Follows = a.Number
		c.CurX = a.X
		vm.setCameraAt(c.CurX, 0)
	}
	t := a.X/8 - vm.screenStartStrip()
	if t < c.LeftTrigger || t > c.RightTrigger {
		vm.setCameraAt(a.X, 0)
	}
	for _, o := range vm.actors[1:] {
		if vm.inCurrentRoom(o) {
			o.needRedraw = true
		}
	}
}

func (vm *VM) screenStartStrip() int {
	return vm.camera.CurX/8 - vm.cfg.ScreenWidth/16
}

// moveCamera scrolls one step per tick towards the destination, eight
// pixels at a time unless fast scrolling is on.
func (vm *VM) moveCamera() {
	c := &vm.camera
	pos := c.CurX
	snap := vm.engineVar(vm.cfg.Vars.CameraFastX) != 0
	lo, hi := vm.cameraMin(), vm.cameraMax()

	c.CurX &^= 7
	if c.CurX < lo {
		if snap {
			c.CurX = lo
		} else {
			c.CurX += 8
		}
		vm.cameraMoved()
		return
	}
	if c.CurX > hi {
		if snap {
			c.CurX = hi
		} else {
			c.CurX -= 8
		}
		vm.cameraMoved()
		return
	}

	var a *Actor
	if c.Mode == CameraFollowActor {
		a = vm.Actor(c.Follows)
		if a != nil {
			t := a.X/8 - vm.screenStartStrip()
			if t < c.LeftTrigger || t > c.RightTrigger {
				if snap {
					if t > 35 {
						c.DestX = a.X + 80
					}
					if t < 5 {
						c.DestX = a.X - 80
					}
				} else {
					c.MovingToActor = true
				}
			}
		}
	}
	if c.MovingToActor {
		a = vm.Actor(c.Follows)
		if a != nil {
			c.DestX = a.X
		}
	}
	c.DestX = max(min(c.DestX, hi), lo)

	if snap {
		c.CurX = c.DestX
	} else {
		if c.CurX < c.DestX {
			c.CurX += 8
		}
		if c.CurX > c.DestX {
			c.CurX -= 8
		}
	}
	if c.MovingToActor && a != nil && c.CurX/8 == a.X/8 {
		c.MovingToActor = false
	}
	if c.Mode == CameraPanning && c.CurX == c.DestX {
		c.Mode = CameraNormal
	}
	vm.cameraMoved()
	if pos != c.CurX {
		vm.runScrollScript()
	}
}

// cameraMoved keeps the view inside the room and publishes the position.
func (vm *VM) cameraMoved() {
	c := &vm.camera
	half := vm.cfg.ScreenWidth / 2
	if vm.room != nil && vm.room.Width > 0 {
		c.CurX = max(min(c.CurX, vm.room.Width-half), half)
	}
	vm.setEngineVar(vm.cfg.Vars.CameraPosX, int32(c.CurX))
	vm.setEngineVar(vm.cfg.Vars.CameraPosY, int32(c.CurY))
}

func (vm *VM) runScrollScript() {
	n := vm.engineVar(vm.cfg.Vars.ScrollScript)
	if vm.cfg.Vars.ScrollScript == NoVar || n == 0 {
		return
	}
	vm.setEngineVar(vm.cfg.Vars.CameraPosX, int32(vm.camera.CurX))
	vm.runScript(int(n), false, false, nil)
}
