package move

// Framework module names with special treatment.
const (
	ModuleObject      = "object"
	ModuleString      = "string"
	ModuleASCII       = "ascii"
	ModuleOption      = "option"
	ModuleTable       = "table"
	ModuleObjectTable = "object_table"
	ModuleLinkedTable = "linked_table"
	ModuleVecMap      = "vec_map"
	ModuleVecSet      = "vec_set"
	ModuleTableVec    = "table_vec"
)

// WrapperKind classifies a struct reference by how the framework wraps it.
type WrapperKind int

const (
	WrapperNone     WrapperKind = iota // ordinary struct, gets its own declaration
	WrapperObjectID                    // object::ID, object::UID
	WrapperString                      // string::String, ascii::String
	WrapperOption                      // option::Option<T>
	WrapperMap                         // table-like K -> V containers
	WrapperSet                         // vec_set::VecSet<T>
	WrapperSequence                    // table_vec::TableVec<T>
)

// String returns a human-readable name of the wrapper kind.
func (k WrapperKind) String() string {
	switch k {
	case WrapperObjectID:
		return "object_id"
	case WrapperString:
		return "string"
	case WrapperOption:
		return "option"
	case WrapperMap:
		return "map"
	case WrapperSet:
		return "set"
	case WrapperSequence:
		return "sequence"
	default:
		return "none"
	}
}

var mapModules = map[string]bool{
	ModuleTable:       true,
	ModuleObjectTable: true,
	ModuleLinkedTable: true,
	ModuleVecMap:      true,
}

// Wrapper classifies ref. Matching is by module (and for object, by name)
// regardless of the declaring address.
func Wrapper(ref *StructRef) WrapperKind {
	if ref == nil {
		return WrapperNone
	}

	switch {
	case ref.Module == ModuleObject && (ref.Name == "ID" || ref.Name == "UID"):
		return WrapperObjectID
	case ref.Module == ModuleString || ref.Module == ModuleASCII:
		return WrapperString
	case ref.Module == ModuleOption:
		return WrapperOption
	case mapModules[ref.Module]:
		return WrapperMap
	case ref.Module == ModuleVecSet:
		return WrapperSet
	case ref.Module == ModuleTableVec:
		return WrapperSequence
	default:
		return WrapperNone
	}
}

// IsLeafModule reports whether the module is a leaf wrapper module: its
// structs always map to a primitive and are never expanded.
func IsLeafModule(module string) bool {
	return module == ModuleObject || module == ModuleString || module == ModuleASCII
}
