package utils_test

import (
	"os"
	"path/filepath"

	"github.com/kentos-io/bootward/internal/utils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("fstab audit", func() {
	var path string

	BeforeEach(func() {
		dir, err := os.MkdirTemp("", "")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { _ = os.RemoveAll(dir) })
		path = filepath.Join(dir, "fstab")
	})

	It("flags boot mounts pinned by raw device path", func() {
		content := `UUID=0f43a547-f58c-4b42-8a22-34da86fa1557 / ext4 defaults 0 1
/dev/vda3 /boot ext4 defaults 1 2
/dev/disk/by-uuid/7B77-95E7 /boot/efi vfat umask=0077 0 2
/dev/sdb1 /data ext4 defaults 0 0
`
		Expect(os.WriteFile(path, []byte(content), 0o644)).ToNot(HaveOccurred())

		pinned, err := utils.AuditFstab(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(pinned).To(Equal([]string{"/boot"}))
	})

	It("returns nothing for a clean fstab", func() {
		content := `UUID=0f43a547-f58c-4b42-8a22-34da86fa1557 / ext4 defaults 0 1
UUID=dc67e6e8-bbe2-423f-9ae4-766910ee4494 /boot ext4 defaults 1 2
`
		Expect(os.WriteFile(path, []byte(content), 0o644)).ToNot(HaveOccurred())

		pinned, err := utils.AuditFstab(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(pinned).To(BeEmpty())
	})

	It("errors on a missing file", func() {
		_, err := utils.AuditFstab(filepath.Join(path, "nope"))
		Expect(err).To(HaveOccurred())
	})
})
