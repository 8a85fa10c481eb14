package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NameMustBeValid", func() {
	It("should accept dotted names", func() {
		Expect(func() { NameMustBeValid("Net.Switch1") }).NotTo(Panic())
	})

	It("should reject empty names", func() {
		Expect(func() { NameMustBeValid("") }).To(Panic())
	})

	It("should reject empty tokens", func() {
		Expect(func() { NameMustBeValid("Net..Switch") }).To(Panic())
	})

	It("should reject names with spaces", func() {
		Expect(func() { NameMustBeValid("Net.My Switch") }).To(Panic())
	})
})
