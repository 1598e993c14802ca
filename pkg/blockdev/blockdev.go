package blockdev

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
)

// Device is one row of the structured lsblk listing. It is produced
// fresh from live system state on every query and never cached: the disk
// layout can change between invocations.
type Device struct {
	Path         string  `json:"path"`
	PtType       *string `json:"pttype"`
	PartTypeName *string `json:"parttypename"`
	PartType     *string `json:"parttype"`
}

type listing struct {
	BlockDevices []Device `json:"blockdevices"`
}

// GPT partition type GUIDs, for listings old or localized enough to lack
// PARTTYPENAME.
var (
	BiosBootGUID = uuid.Must(uuid.FromString("21686148-6449-6e6f-744e-656564454649"))
	ESPGUID      = uuid.Must(uuid.FromString("c12a7328-f81f-11d2-ba4b-00a0c93ec93b"))
)

// ParseListing decodes lsblk --json output. Unknown fields are ignored;
// missing pttype/parttypename are nil, not errors.
func ParseListing(out string) ([]Device, error) {
	var l listing
	if err := json.Unmarshal([]byte(out), &l); err != nil {
		return nil, fmt.Errorf("%w: decoding lsblk output: %v", constants.ErrQuery, err)
	}
	return l.BlockDevices, nil
}

// List queries device and everything under it as structured
// (path, partition-table-type, partition-type-name) triples.
func List(run utils.Runner, device string) ([]Device, error) {
	out, err := run.Output("lsblk", "--json", "--output", "PATH,PTTYPE,PARTTYPENAME,PARTTYPE", device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", constants.ErrQuery, err)
	}
	return ParseListing(out)
}

// FindPartitionByType returns the path of the first partition under
// device whose partition table type and semantic type name both match,
// or "" when there is none. No match is not an error: absence is a valid
// signal for adoption logic. Entries without a PARTTYPENAME still match
// when their PARTTYPE GUID equals guid.
func FindPartitionByType(run utils.Runner, device, tableType, typeName string, guid uuid.UUID) (string, error) {
	devices, err := List(run, device)
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.PtType == nil || *d.PtType != tableType {
			continue
		}
		if d.PartTypeName != nil {
			if *d.PartTypeName == typeName {
				return d.Path, nil
			}
			continue
		}
		if d.PartType != nil {
			if parsed, err := uuid.FromString(*d.PartType); err == nil && parsed == guid {
				return d.Path, nil
			}
		}
	}
	return "", nil
}
