//go:build windows

package winapi

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
)

// ImportEntry is one resolved import: which DLL it comes from, the
// name it's imported by (empty for an ordinal-only import), and the
// RVA of its IAT slot — the address the loader rewrites with the
// resolved function pointer and the address an IAT hook overwrites
// with the replacement.
type ImportEntry struct {
	DLL     string
	Name    string
	Ordinal uint16
	IATRVA  uint32
}

// imageImportDescriptor mirrors IMAGE_IMPORT_DESCRIPTOR.
type imageImportDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

const importDescriptorSize = 20

// FindImport opens the PE file at imagePath and locates name's entry in
// dll's import table, returning the RVA of its IAT slot. Reads the
// import directory directly from the section data rather than using
// pe.File.ImportedSymbols (which discards per-DLL IAT addresses, the
// thing an IAT hook actually needs to patch).
func FindImport(imagePath, dll, name string) (*ImportEntry, error) {
	f, err := pe.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("winapi: opening %s: %w", imagePath, err)
	}
	defer f.Close()

	is32 := f.Machine == pe.IMAGE_FILE_MACHINE_I386
	var dirRVA, dirSize uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if len(oh.DataDirectory) <= int(pe.IMAGE_DIRECTORY_ENTRY_IMPORT) {
			return nil, fmt.Errorf("winapi: no import directory")
		}
		dirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT].VirtualAddress
		dirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT].Size
	case *pe.OptionalHeader64:
		if len(oh.DataDirectory) <= int(pe.IMAGE_DIRECTORY_ENTRY_IMPORT) {
			return nil, fmt.Errorf("winapi: no import directory")
		}
		dirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT].VirtualAddress
		dirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT].Size
	default:
		return nil, fmt.Errorf("winapi: unrecognised optional header type")
	}
	if dirRVA == 0 {
		return nil, fmt.Errorf("winapi: %s has no import table", imagePath)
	}

	readRVA := func(rva, n uint32) ([]byte, error) {
		for _, sec := range f.Sections {
			if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.Size {
				data, err := sec.Data()
				if err != nil {
					return nil, err
				}
				off := rva - sec.VirtualAddress
				if off+n > uint32(len(data)) {
					return nil, fmt.Errorf("winapi: rva 0x%x out of section bounds", rva)
				}
				return data[off : off+n], nil
			}
		}
		return nil, fmt.Errorf("winapi: rva 0x%x not mapped in any section", rva)
	}

	readCString := func(rva uint32) (string, error) {
		for _, sec := range f.Sections {
			if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.Size {
				data, err := sec.Data()
				if err != nil {
					return "", err
				}
				off := rva - sec.VirtualAddress
				end := off
				for end < uint32(len(data)) && data[end] != 0 {
					end++
				}
				return string(data[off:end]), nil
			}
		}
		return "", fmt.Errorf("winapi: rva 0x%x not mapped", rva)
	}

	thunkSize := uint32(4)
	if !is32 {
		thunkSize = 8
	}

	for off := uint32(0); off+importDescriptorSize <= dirSize; off += importDescriptorSize {
		raw, err := readRVA(dirRVA+off, importDescriptorSize)
		if err != nil {
			return nil, err
		}
		desc := imageImportDescriptor{
			OriginalFirstThunk: binary.LittleEndian.Uint32(raw[0:4]),
			TimeDateStamp:      binary.LittleEndian.Uint32(raw[4:8]),
			ForwarderChain:     binary.LittleEndian.Uint32(raw[8:12]),
			Name:               binary.LittleEndian.Uint32(raw[12:16]),
			FirstThunk:         binary.LittleEndian.Uint32(raw[16:20]),
		}
		if desc.Name == 0 && desc.FirstThunk == 0 {
			break // null terminator descriptor
		}
		descDLL, err := readCString(desc.Name)
		if err != nil {
			return nil, err
		}
		if !equalFoldDLL(descDLL, dll) {
			continue
		}

		nameTableRVA := desc.OriginalFirstThunk
		if nameTableRVA == 0 {
			nameTableRVA = desc.FirstThunk // no INT (bound import): fall back to IAT itself
		}

		for i := uint32(0); ; i++ {
			thunk, err := readRVA(nameTableRVA+i*thunkSize, thunkSize)
			if err != nil {
				return nil, err
			}
			var val uint64
			if is32 {
				val = uint64(binary.LittleEndian.Uint32(thunk))
			} else {
				val = binary.LittleEndian.Uint64(thunk)
			}
			if val == 0 {
				break // end of this DLL's thunk array
			}

			ordinalFlag := uint64(1) << 31
			if !is32 {
				ordinalFlag = uint64(1) << 63
			}
			iatSlot := desc.FirstThunk + i*thunkSize

			if val&ordinalFlag != 0 {
				continue // ordinal-only imports aren't matched by name here
			}

			hintNameRVA := uint32(val)
			// Hint/Name entry: uint16 hint, then the NUL-terminated name.
			symName, err := readCString(hintNameRVA + 2)
			if err != nil {
				return nil, err
			}
			if symName == name {
				return &ImportEntry{DLL: descDLL, Name: symName, IATRVA: iatSlot}, nil
			}
		}
	}

	return nil, fmt.Errorf("winapi: %s!%s not found in %s's import table", dll, name, imagePath)
}

// imageExportDirectory mirrors IMAGE_EXPORT_DIRECTORY.
type imageExportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

const exportDirectorySize = 40

// FindExportRVA opens the PE file at imagePath and returns the RVA of
// name's entry in its export table — the offset a remote module's own
// base address must be added to once it's loaded in a target process,
// since GetProcAddress itself only resolves addresses within the
// calling process.
func FindExportRVA(imagePath, name string) (uint32, error) {
	f, err := pe.Open(imagePath)
	if err != nil {
		return 0, fmt.Errorf("winapi: opening %s: %w", imagePath, err)
	}
	defer f.Close()

	var dirRVA, dirSize uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if len(oh.DataDirectory) <= int(pe.IMAGE_DIRECTORY_ENTRY_EXPORT) {
			return 0, fmt.Errorf("winapi: no export directory")
		}
		dirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT].VirtualAddress
		dirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT].Size
	case *pe.OptionalHeader64:
		if len(oh.DataDirectory) <= int(pe.IMAGE_DIRECTORY_ENTRY_EXPORT) {
			return 0, fmt.Errorf("winapi: no export directory")
		}
		dirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT].VirtualAddress
		dirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT].Size
	default:
		return 0, fmt.Errorf("winapi: unrecognised optional header type")
	}
	if dirRVA == 0 || dirSize < exportDirectorySize {
		return 0, fmt.Errorf("winapi: %s has no export table", imagePath)
	}

	readRVA := func(rva, n uint32) ([]byte, error) {
		for _, sec := range f.Sections {
			if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.Size {
				data, err := sec.Data()
				if err != nil {
					return nil, err
				}
				off := rva - sec.VirtualAddress
				if off+n > uint32(len(data)) {
					return nil, fmt.Errorf("winapi: rva 0x%x out of section bounds", rva)
				}
				return data[off : off+n], nil
			}
		}
		return nil, fmt.Errorf("winapi: rva 0x%x not mapped in any section", rva)
	}

	readCString := func(rva uint32) (string, error) {
		for _, sec := range f.Sections {
			if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+sec.Size {
				data, err := sec.Data()
				if err != nil {
					return "", err
				}
				off := rva - sec.VirtualAddress
				end := off
				for end < uint32(len(data)) && data[end] != 0 {
					end++
				}
				return string(data[off:end]), nil
			}
		}
		return "", fmt.Errorf("winapi: rva 0x%x not mapped", rva)
	}

	raw, err := readRVA(dirRVA, exportDirectorySize)
	if err != nil {
		return 0, err
	}
	dir := imageExportDirectory{
		NumberOfFunctions:     binary.LittleEndian.Uint32(raw[16:20]),
		NumberOfNames:         binary.LittleEndian.Uint32(raw[20:24]),
		AddressOfFunctions:    binary.LittleEndian.Uint32(raw[28:32]),
		AddressOfNames:        binary.LittleEndian.Uint32(raw[32:36]),
		AddressOfNameOrdinals: binary.LittleEndian.Uint32(raw[36:40]),
	}

	for i := uint32(0); i < dir.NumberOfNames; i++ {
		nameRVAraw, err := readRVA(dir.AddressOfNames+i*4, 4)
		if err != nil {
			return 0, err
		}
		nameRVA := binary.LittleEndian.Uint32(nameRVAraw)
		symName, err := readCString(nameRVA)
		if err != nil {
			return 0, err
		}
		if symName != name {
			continue
		}
		ordRaw, err := readRVA(dir.AddressOfNameOrdinals+i*2, 2)
		if err != nil {
			return 0, err
		}
		ordinal := binary.LittleEndian.Uint16(ordRaw)
		if uint32(ordinal) >= dir.NumberOfFunctions {
			return 0, fmt.Errorf("winapi: %s: ordinal %d out of range", name, ordinal)
		}
		fnRaw, err := readRVA(dir.AddressOfFunctions+uint32(ordinal)*4, 4)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(fnRaw), nil
	}

	return 0, fmt.Errorf("winapi: %s: export %q not found", imagePath, name)
}

func equalFoldDLL(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
