package vm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// jiffy is one 60 Hz engine tick.
const jiffy = time.Second / 60

// ErrQuit is returned by Run when a script ends the game.
var ErrQuit = errors.New("game quit")

// Boot starts the game's boot script (global script 1) with bootParam.
func (vm *VM) Boot(bootParam int) error {
	vm.log.Info("Booting", "version", vm.cfg.Version, "game", vm.cfg.GameID, "boot_param", bootParam)
	args := []int32{int32(bootParam)}
	return vm.RunScript(1, false, false, args)
}

// Tick advances the engine by delta jiffies: timers, script delays, every
// runnable script, the sentence queue, then actors, camera and palette.
func (vm *VM) Tick(delta int) (err error) {
	defer vm.recoverFault(&err)

	v := &vm.cfg.Vars
	vm.ticks += int64(delta)
	for _, t := range []int{v.Tmr1, v.Tmr2, v.Tmr3} {
		vm.setEngineVar(t, vm.engineVar(t)+int32(delta))
	}
	vm.setEngineVar(v.Timer, int32(delta))
	vm.setEngineVar(v.TimerTotal, vm.engineVar(v.TimerTotal)+int32(delta))

	if vm.textDef.TalkDelay > 0 {
		vm.textDef.TalkDelay -= delta
		if vm.textDef.TalkDelay <= 0 && vm.engineVar(v.HaveMsg) != 0 {
			vm.stopTalk()
		}
	}

	vm.DecreaseScriptDelay(delta)
	if err := vm.RunAllScripts(); err != nil {
		return err
	}
	vm.checkAndRunSentenceScript()
	if vm.quit {
		return nil
	}
	if vm.restartPending {
		vm.restartPending = false
		vm.runScript(1, false, false, nil)
	}
	vm.processSaveLoad()

	if vm.room != nil {
		vm.updateActors()
		vm.moveCamera()
		vm.cyclePalette()
	}
	return nil
}

// timerNext is how many jiffies the scripts ask to wait between ticks.
func (vm *VM) timerNext() int {
	n := int(vm.engineVar(vm.cfg.Vars.TimerNext))
	if n < 1 {
		return 1
	}
	return n
}

// TickInterval returns how many jiffies the next Tick should cover.
func (vm *VM) TickInterval() int {
	return vm.timerNext()
}

// Run ticks the engine in real time until ctx is done, a script quits or
// a fault occurs. A zero timeout means no limit.
func (vm *VM) Run(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	vm.log.Info("Engine loop started", "timeout", timeout)

	for {
		delta := vm.timerNext()
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				vm.log.Info("Engine loop timed out", "ticks", vm.ticks)
				return nil
			}
			vm.log.Info("Engine loop cancelled", "ticks", vm.ticks)
			return nil
		case <-time.After(time.Duration(delta) * jiffy):
		}

		if err := vm.Tick(delta); err != nil {
			return fmt.Errorf("tick %d: %w", vm.ticks, err)
		}
		if vm.quit {
			vm.log.Info("Game quit", "ticks", vm.ticks)
			return ErrQuit
		}
	}
}

// Ticks returns the number of jiffies run so far.
func (vm *VM) Ticks() int64 {
	return vm.ticks
}

// SetMouse publishes the pointer position to the scripts.
func (vm *VM) SetMouse(x, y int) {
	v := &vm.cfg.Vars
	vm.setEngineVar(v.MouseX, int32(x))
	vm.setEngineVar(v.MouseY, int32(y))
	vm.setEngineVar(v.VirtMouseX, int32(x+vm.camera.CurX-vm.cfg.ScreenWidth/2))
	vm.setEngineVar(v.VirtMouseY, int32(y))
}

// KeyPress delivers a key to the scripts. The cutscene-exit key aborts
// the innermost cutscene.
func (vm *VM) KeyPress(key int) {
	v := &vm.cfg.Vars
	if exit := vm.engineVar(v.CutsceneExitKey); exit != 0 && int(exit) == key {
		vm.AbortCutscene()
		return
	}
	if stop := vm.engineVar(v.TalkStopKey); stop != 0 && int(stop) == key && vm.engineVar(v.HaveMsg) != 0 {
		vm.stopTalk()
		return
	}
	vm.setEngineVar(v.Keypress, int32(key))
}
