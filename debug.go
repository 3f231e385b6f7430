package fiber

// debugMaxTreeDepth is the depth beyond which a mount logs a warning.
const debugMaxTreeDepth = 32

// debugMaxChildCount is the child count beyond which a mount logs a warning.
const debugMaxChildCount = 1000

// debugChecks runs the debug-mode sanity checks after inst was placed
// under parent. In release mode it returns immediately.
func (rc *Reconciler) debugChecks(parent, inst *Instance) {
	if !rc.ctx.debug {
		return
	}
	rc.debugCheckTreeDepth(inst)
	rc.debugCheckChildCount(parent)
	if inst.disposed || parent.disposed {
		rc.ctx.Logger.Error("tree operation on disposed instance", "parent", parent.ID, "child", inst.ID)
	}
}

func (rc *Reconciler) debugCheckTreeDepth(inst *Instance) {
	depth := 0
	for cur := inst.ID; cur != 0; depth++ {
		i, ok := rc.ctx.Instances.Get(cur)
		if !ok {
			break
		}
		cur = i.Parent
	}
	if depth > debugMaxTreeDepth {
		rc.ctx.Logger.Warn("tree depth exceeds threshold", "depth", depth, "max", debugMaxTreeDepth,
			"path", rc.ctx.Instances.Path(inst.ID))
	}
}

func (rc *Reconciler) debugCheckChildCount(parent *Instance) {
	if n := len(parent.Children); n > debugMaxChildCount {
		rc.ctx.Logger.Warn("child count exceeds threshold", "type", parent.Type, "id", parent.ID,
			"children", n, "max", debugMaxChildCount)
	}
}
