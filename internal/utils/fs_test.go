package utils_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/kentos-io/bootward/internal/constants"
	"github.com/kentos-io/bootward/internal/utils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	vfs "github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"
)

var _ = Describe("filesystem helpers", func() {
	var fs vfs.FS
	var cleanup func()

	AfterEach(func() {
		cleanup()
	})

	Context("CopyTree", func() {
		BeforeEach(func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/src/subdir/testfile.txt": "Hello, world!\n",
				"/src/loader.mod":          &vfst.File{Perm: 0o755, Contents: []byte("binary\n")},
			})
			Expect(err).ToNot(HaveOccurred())
		})
		It("copies files recursively preserving permissions", func() {
			err := utils.CopyTree(fs, "/src", fs, "/dest")
			Expect(err).ToNot(HaveOccurred())

			data, err := fs.ReadFile("/dest/subdir/testfile.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("Hello, world!\n"))

			info, err := fs.Stat("/dest/loader.mod")
			Expect(err).ToNot(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o755)))
		})
		It("fails without touching the destination when the source is missing", func() {
			err := utils.CopyTree(fs, "/nonexistent", fs, "/dest")
			Expect(err).To(MatchError(constants.ErrSourceMissing))
			_, err = fs.Stat("/dest")
			Expect(err).To(HaveOccurred())
		})
		It("fails when the source is a file, not a directory", func() {
			err := utils.CopyTree(fs, "/src/loader.mod", fs, "/dest")
			Expect(err).To(MatchError(constants.ErrSourceMissing))
		})
		It("converges when run twice", func() {
			Expect(utils.CopyTree(fs, "/src", fs, "/dest")).ToNot(HaveOccurred())
			first, err := utils.TreeDigest(fs, "/dest")
			Expect(err).ToNot(HaveOccurred())

			Expect(utils.CopyTree(fs, "/src", fs, "/dest")).ToNot(HaveOccurred())
			second, err := utils.TreeDigest(fs, "/dest")
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	Context("CopyTree with non-regular entries", func() {
		BeforeEach(func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/tree/file.txt": "content",
				"/tree/link":     &vfst.Symlink{Target: "file.txt"},
			})
			Expect(err).ToNot(HaveOccurred())
		})
		It("skips symlinks instead of aborting", func() {
			err := utils.CopyTree(fs, "/tree", fs, "/out")
			Expect(err).ToNot(HaveOccurred())

			_, err = fs.Stat("/out/file.txt")
			Expect(err).ToNot(HaveOccurred())
			_, err = fs.Lstat("/out/link")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("TreeDigest", func() {
		BeforeEach(func() {
			var err error
			fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{
				"/assets/subdir/testfile.txt": "Hello, world!\n",
				"/assets/top.efi":             "payload",
			})
			Expect(err).ToNot(HaveOccurred())
		})
		It("maps slash-relative paths to content digests", func() {
			tree, err := utils.TreeDigest(fs, "/assets")
			Expect(err).ToNot(HaveOccurred())
			Expect(tree).To(HaveLen(2))

			sum := sha256.Sum256([]byte("Hello, world!\n"))
			Expect(tree["subdir/testfile.txt"]).To(Equal(hex.EncodeToString(sum[:])))
			Expect(tree).To(HaveKey("top.efi"))
		})
		It("changes the digest when content changes", func() {
			before, err := utils.TreeDigest(fs, "/assets")
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.WriteFile("/assets/top.efi", []byte("tampered"), 0o644)).ToNot(HaveOccurred())
			after, err := utils.TreeDigest(fs, "/assets")
			Expect(err).ToNot(HaveOccurred())
			Expect(after["top.efi"]).ToNot(Equal(before["top.efi"]))
			Expect(after["subdir/testfile.txt"]).To(Equal(before["subdir/testfile.txt"]))
		})
	})
})
