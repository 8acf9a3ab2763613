// Package isopick provides pixel-exact picking for 2D sprites drawn with
// [Ebitengine].
//
// Bounding boxes report hits on the transparent corners of irregular
// sprites and cannot tell which of two overlapping sprites is on top.
// isopick instead draws every tracked sprite into an offscreen index buffer
// in a flat identity color that encodes a 24-bit index, using the sprite's
// own transform, alpha mask and draw order. A query reads one pixel of that
// buffer and decodes the color back into the topmost object at the point.
//
// # Engines
//
// An [Engine] tracks the sprites under one layer [Node]. Two presets cover
// the common split between map tiles and tokens:
//
//	tiles := isopick.NewEngine(tileLayer, isopick.TileConfig(worldBounds))
//	tokens := isopick.NewEngine(tokenLayer, isopick.TokenConfig(worldBounds))
//	if err := tiles.Init(); err != nil { ... }
//	if err := tokens.Init(); err != nil { ... }
//
// Tiles are indexed at a quarter of world resolution and rebuild one frame
// after the last change. Tokens are indexed at full resolution and wait at
// least 50ms, so a dragged token does not rebuild the buffer every frame.
//
// # Keeping the index current
//
// Call [Engine.Reindex] after adding or changing a sprite and
// [Engine.DeleteFromIndex] after removing one, or [Engine.Sync] to
// reconcile the whole layer at once. Changes are coalesced: the buffer is
// redrawn once per debounce window from [Engine.Update], which a [Scene]
// calls for every attached engine.
//
// # Hit testing
//
// Every tracked node gets a [PickStrategy] as its [HitShape], so the
// scene's own pointer handling becomes pixel-exact with no further wiring.
// [Engine.QueryAt] answers the same question directly for a world point.
// [Engine.Destroy] puts the original hit shapes back.
//
// # Backends
//
// [BackendGPU] renders the index buffer with a Kage shader and reads single
// pixels back from the GPU. [BackendSoftware] keeps a CPU copy rendered
// with golang.org/x/image/draw; queries never stall the GPU, and it runs
// headless.
//
// [Ebitengine]: https://ebitengine.org
package isopick
