package blockdev_test

import (
	"errors"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/mocks"
	"github.com/kentos-io/bootward/pkg/blockdev"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	findmntCmd = "findmnt --noheadings --nofsroot --output SOURCE /boot"
	pknameCmd  = "lsblk --paths --noheadings --output PKNAME /dev/vda3"
)

var _ = Describe("device resolution", func() {
	Context("MountChainResolver", func() {
		var run *mocks.Runner
		var resolver blockdev.MountChainResolver

		BeforeEach(func() {
			run = &mocks.Runner{Outputs: map[string]string{
				findmntCmd: "/dev/vda3",
				pknameCmd:  "/dev/vda",
			}}
			resolver = blockdev.MountChainResolver{Mountpoint: "/boot"}
		})

		It("walks from the mountpoint to the parent disk", func() {
			device, err := resolver.Resolve(run)
			Expect(err).ToNot(HaveOccurred())
			Expect(device).To(Equal("/dev/vda"))
		})
		It("fails when the mountpoint has no source", func() {
			run.Outputs[findmntCmd] = ""
			_, err := resolver.Resolve(run)
			Expect(err).To(MatchError(constants.ErrResolution))
		})
		It("fails when the partition has no parent device", func() {
			run.Outputs[pknameCmd] = ""
			_, err := resolver.Resolve(run)
			Expect(err).To(MatchError(constants.ErrResolution))
		})
		It("fails when findmnt itself fails", func() {
			run.Errs = map[string]error{findmntCmd: errors.New("findmnt: /boot: not found")}
			_, err := resolver.Resolve(run)
			Expect(err).To(MatchError(constants.ErrResolution))
		})
	})

	Context("SymlinkResolver", func() {
		const realpathCmd = "realpath /dev/disk/by-partlabel/PowerPC-PReP-boot"

		It("resolves the well-known symlink to a device node", func() {
			run := &mocks.Runner{Outputs: map[string]string{realpathCmd: "/dev/sda1"}}
			device, err := blockdev.SymlinkResolver{Link: "/dev/disk/by-partlabel/PowerPC-PReP-boot"}.Resolve(run)
			Expect(err).ToNot(HaveOccurred())
			Expect(device).To(Equal("/dev/sda1"))
		})
		It("fails when the symlink does not resolve", func() {
			run := &mocks.Runner{Errs: map[string]error{realpathCmd: errors.New("realpath: no such file")}}
			_, err := blockdev.SymlinkResolver{Link: "/dev/disk/by-partlabel/PowerPC-PReP-boot"}.Resolve(run)
			Expect(err).To(MatchError(constants.ErrResolution))
		})
	})
})
