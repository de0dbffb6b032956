package reception

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		dir     string
		storage *LocalStorage
	)

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), "uploads")
		var err error
		storage, err = NewLocalStorage(dir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates the base directory", func() {
		info, err := os.Stat(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("saves, reads and deletes files", func() {
		name, err := storage.Save("a_ТТН.pdf", []byte("%PDF"))
		Expect(err).NotTo(HaveOccurred())
		Expect(name).To(Equal("a_ТТН.pdf"))
		Expect(storage.Path(name)).To(Equal(filepath.Join(dir, "a_ТТН.pdf")))

		data, err := storage.Get(name)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("%PDF")))

		Expect(storage.Delete(name)).To(Succeed())
		_, err = storage.Get(name)
		Expect(err).To(HaveOccurred())
	})

	It("keeps paths inside the base directory", func() {
		Expect(storage.Path("../escape.png")).To(Equal(filepath.Join(dir, "escape.png")))
	})

	It("fails to delete a missing file", func() {
		Expect(storage.Delete("missing.png")).NotTo(Succeed())
	})
})
