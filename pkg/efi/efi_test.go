package efi_test

import (
	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/mocks"
	"github.com/kentos-io/bootward/pkg/efi"
	"github.com/kentos-io/bootward/pkg/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"
)

const efiDescriptor = `{"timestamp":"2023-07-10T00:00:00Z","version":"grub2-efi-x64-1:2.06-94.fc38.x86_64,shim-x64-15.6-2.x86_64"}`

func stagedTree() map[string]interface{} {
	return map[string]interface{}{
		"/usr/lib/bootward/updates/EFI/fedora/shimx64.efi": "shim",
		"/usr/lib/bootward/updates/EFI/fedora/grubx64.efi": "grub",
		"/usr/lib/bootward/updates/EFI.json":               efiDescriptor,
	}
}

func espMounted(string) bool { return true }

var _ = Describe("EFI firmware probes", func() {
	It("detects an EFI boot from the firmware sysfs tree", func() {
		fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{
			"/sys/firmware/efi/systab": "",
		})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()
		Expect(efi.Booted(fs)).To(BeTrue())
	})

	It("reports legacy boot when the tree is absent", func() {
		fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
		Expect(err).ToNot(HaveOccurred())
		defer cleanup()
		Expect(efi.Booted(fs)).To(BeFalse())
	})
})

var _ = Describe("ESP component", func() {
	var fs vfs.FS
	var cleanup func()

	AfterEach(func() {
		cleanup()
	})

	Context("Install", func() {
		BeforeEach(func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(stagedTree())
			Expect(err).ToNot(HaveOccurred())
		})

		It("copies the staged payload and records a manifest", func() {
			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			installed, err := e.Install(fs, "/", "")
			Expect(err).ToNot(HaveOccurred())
			Expect(installed.FileTree).To(HaveLen(2))
			Expect(installed.FileTree).To(HaveKey("fedora/shimx64.efi"))
			Expect(installed.FileTree).To(HaveKey("fedora/grubx64.efi"))

			data, err := fs.ReadFile("/boot/efi/EFI/fedora/shimx64.efi")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("shim"))
		})

		It("fails when the ESP is not mounted", func() {
			e := efi.NewWithDeps(fs, &mocks.Runner{}, func(string) bool { return false })
			_, err := e.Install(fs, "/", "")
			Expect(err).To(MatchError(constants.ErrESPNotMounted))
		})

		It("fails when no payload is staged", func() {
			Expect(fs.RemoveAll("/usr/lib/bootward/updates/EFI")).ToNot(HaveOccurred())
			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			_, err := e.Install(fs, "/", "")
			Expect(err).To(MatchError(constants.ErrAssetsMissing))
		})

		It("requires an update descriptor", func() {
			Expect(fs.Remove("/usr/lib/bootward/updates/EFI.json")).ToNot(HaveOccurred())
			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			_, err := e.Install(fs, "/", "")
			Expect(err).To(MatchError(constants.ErrMetadataNotFound))
		})
	})

	Context("Validate", func() {
		var e *efi.EFI
		var installed *model.InstalledContent

		BeforeEach(func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(stagedTree())
			Expect(err).ToNot(HaveOccurred())
			e = efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			installed, err = e.Install(fs, "/", "")
			Expect(err).ToNot(HaveOccurred())
		})

		It("accepts an untouched payload", func() {
			result, err := e.Validate(installed)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Kind).To(Equal(model.ValidationValid))
		})

		It("reports changed and missing files", func() {
			Expect(fs.WriteFile("/boot/efi/EFI/fedora/grubx64.efi", []byte("tampered"), 0o644)).ToNot(HaveOccurred())
			Expect(fs.Remove("/boot/efi/EFI/fedora/shimx64.efi")).ToNot(HaveOccurred())

			result, err := e.Validate(installed)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Kind).To(Equal(model.ValidationErrors))
			Expect(result.Errors).To(Equal([]string{
				"changed: fedora/grubx64.efi",
				"missing: fedora/shimx64.efi",
			}))
		})

		It("skips records without a manifest", func() {
			result, err := e.Validate(&model.InstalledContent{Meta: installed.Meta})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Kind).To(Equal(model.ValidationSkip))
		})

		It("errors when the ESP is not mounted", func() {
			unmounted := efi.NewWithDeps(fs, &mocks.Runner{}, func(string) bool { return false })
			_, err := unmounted.Validate(installed)
			Expect(err).To(MatchError(constants.ErrESPNotMounted))
		})
	})

	Context("QueryAdopt", func() {
		It("offers an unconfident adoption for a populated ESP on EFI boot", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/sys/firmware/efi/systab":         "",
				"/boot/efi/EFI/fedora/shimx64.efi": "shim",
			})
			Expect(err).ToNot(HaveOccurred())

			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			adoptable, err := e.QueryAdopt()
			Expect(err).ToNot(HaveOccurred())
			Expect(adoptable).ToNot(BeNil())
			Expect(adoptable.Version.Version).To(Equal("unknown"))
			Expect(adoptable.Confident).To(BeFalse())
		})

		It("skips on a legacy boot", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/boot/efi/EFI/fedora/shimx64.efi": "shim",
			})
			Expect(err).ToNot(HaveOccurred())

			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			adoptable, err := e.QueryAdopt()
			Expect(err).ToNot(HaveOccurred())
			Expect(adoptable).To(BeNil())
		})

		It("skips when the ESP carries no vendor tree", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/sys/firmware/efi/systab": "",
				"/boot/efi/placeholder":    "",
			})
			Expect(err).ToNot(HaveOccurred())

			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			adoptable, err := e.QueryAdopt()
			Expect(err).ToNot(HaveOccurred())
			Expect(adoptable).To(BeNil())
		})
	})

	Context("GetEFIVendor", func() {
		It("names the vendor directory carrying the loader binaries", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(stagedTree())
			Expect(err).ToNot(HaveOccurred())

			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			vendor, err := e.GetEFIVendor(fs)
			Expect(err).ToNot(HaveOccurred())
			Expect(vendor).To(Equal("fedora"))
		})

		It("returns empty when no vendor directory qualifies", func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/usr/lib/bootward/updates/EFI/BOOT/readme.txt": "not a loader",
			})
			Expect(err).ToNot(HaveOccurred())

			e := efi.NewWithDeps(fs, &mocks.Runner{}, espMounted)
			vendor, err := e.GetEFIVendor(fs)
			Expect(err).ToNot(HaveOccurred())
			Expect(vendor).To(BeEmpty())
		})
	})
})
