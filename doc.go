// Package fiber keeps a retained-mode object graph in sync with a
// declarative tree description, drives a per-root frame loop and
// dispatches spatial pointer events into the graph.
//
// The package never knows concrete object types. Hosts register a
// [TypeDef] per type tag: a constructor, a property [Schema] of setter
// closures, and the named fields and array fields children may attach to.
// The reference object library lives in the objects subpackage.
//
// # Quick start
//
// [NewRuntime] wires every subsystem onto one [Context]:
//
//	rt := fiber.NewRuntime()
//	objects.Register(rt.Ctx.Types)
//
//	root, _ := rt.Roots.CreateRoot(0, fiber.RootConfig{
//		Camera: objects.NewPerspectiveCamera(50, 1, 0.1, 100),
//		Size:   fiber.Size{Width: 800, Height: 600},
//	})
//	r, _ := rt.Roots.Get(root)
//	scene := r.Instance()
//
//	mesh, _ := rt.Reconciler.Mount(scene, "mesh", fiber.Props{
//		"position": []float64{0, 0, -5},
//		"onClick":  func(e *fiber.Event) { e.StopPropagation() },
//	}, fiber.AttachHint{})
//	rt.Reconciler.Mount(mesh, "sphereGeometry", fiber.Props{"radius": 1}, fiber.AttachHint{})
//
//	rt.Scheduler.Tick(1.0 / 60)
//	rt.Events.Dispatch(root, fiber.Pointer{Kind: fiber.Click, X: 400, Y: 300})
//
// # Reconciliation
//
// The [Reconciler] accepts Mount, Update, Remove and Reorder, plus
// Reparent and MountTree. Each child attaches to its parent object in one
// of three ways, decided by [Resolve]: assignment to a named field
// ("geometry"), a slot of a dense array field ("materials-1"), or a
// generic AddChild call. Prop keys may be nested paths ("position.x",
// "material-color"). A changed constructor-only key re-mounts the object
// in place, keeping the instance id and its children.
//
// # Frame loop
//
// The [Scheduler] runs each root's stages in order: early, fixed-step
// stages, update, late, render and after. Fixed stages accumulate frame
// time and publish an interpolation alpha. A render subscription with a
// positive priority takes over presentation from the default renderer.
// Roots run every tick, on demand after an invalidation, or only when
// advanced manually.
//
// # Events
//
// The [EventManager] casts the pointer ray into every raycastable
// instance of a root and its portal roots, sorts the hits nearest-first and
// fires handlers with ancestor bubbling. Handlers may stop propagation and
// capture the pointer. Hover is diffed per dispatch and per frame.
//
// # Errors
//
// Construction failures are returned as [*ConstructionError]. Property,
// attachment, disposal and raycast failures are recovered and logged
// through the context's charmbracelet logger.
package fiber
