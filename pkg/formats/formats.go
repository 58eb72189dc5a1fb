// Package formats reads and writes the mesh files used by the uvatlas command.
//
// OBJ is supported in both directions; binary glTF (GLB) is write only.
package formats
