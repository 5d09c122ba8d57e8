// Package formats provides parsers for id-engine asset formats: skinned
// meshes (bmd6model), static meshes (bmodel), raster images (bimage),
// and virtual texture tile indexes (idxma).
//
// Parsers take fully decompressed payloads and never touch the archive
// layer. Recoverable damage (a bad submesh, an out-of-range triangle) is
// reported per part so the rest of the asset still decodes.
package formats
