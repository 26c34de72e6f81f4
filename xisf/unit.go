package xisf

import "github.com/arlobase/astrofmt/errs"

// Unit is the fully decoded XISF document: the root's attribute-level
// metadata, its images, standalone properties and tables, and the
// outcome of signature verification (if a <Signature> element was
// present).
type Unit struct {
	Version        string
	Metadata       []Property
	Images         []Image
	Properties     []Property
	Tables         []Table
	SignatureFound bool
	Verified       bool
}

// UnitOptions configures how a Unit is assembled from a Container.
type UnitOptions struct {
	Resolver         ResourceResolver
	HeaderDir        string
	StrictValidation bool
	OnWarning        errs.WarningFunc
	SignaturePolicy  SignaturePolicy
}

// BuildUnit walks a parsed Container's root element, decoding every
// <Metadata>/Property, <Image>, standalone <Property>, and <Table>
// child, and runs signature verification against the header.
func BuildUnit(c *Container, opts UnitOptions) (*Unit, error) {
	u := &Unit{Version: c.Root.Attr("version")}

	for _, md := range c.Root.ChildrenNamed("Metadata") {
		for _, pe := range md.ChildrenNamed("Property") {
			prop, err := ParseProperty(c, pe, opts.Resolver, opts.HeaderDir)
			if err != nil {
				if fail := reportOrFail(opts, err); fail != nil {
					return nil, fail
				}

				continue
			}
			u.Metadata = append(u.Metadata, prop)
		}
	}

	for _, ie := range c.Root.ChildrenNamed("Image") {
		img, err := ParseImage(ie)
		if err != nil {
			if fail := reportOrFail(opts, err); fail != nil {
				return nil, fail
			}

			continue
		}
		u.Images = append(u.Images, img)
	}

	for _, pe := range c.Root.ChildrenNamed("Property") {
		prop, err := ParseProperty(c, pe, opts.Resolver, opts.HeaderDir)
		if err != nil {
			if fail := reportOrFail(opts, err); fail != nil {
				return nil, fail
			}

			continue
		}
		u.Properties = append(u.Properties, prop)
	}

	for _, te := range c.Root.ChildrenNamed("Table") {
		tbl, err := ParseTable(te)
		if err != nil {
			if fail := reportOrFail(opts, err); fail != nil {
				return nil, fail
			}

			continue
		}
		u.Tables = append(u.Tables, tbl)
	}

	sigs := c.Root.ChildrenNamed("Signature")
	u.SignatureFound = len(sigs) > 0
	if u.SignatureFound {
		err := VerifyContainerSignature(c, opts.SignaturePolicy, opts.OnWarning)
		u.Verified = err == nil
		if err != nil && opts.SignaturePolicy == PolicyRequire {
			return nil, err
		}

		if opts.SignaturePolicy != PolicyIgnore {
			if err := requireExternalChecksums(c.Root); err != nil {
				if fail := reportOrFail(opts, err); fail != nil {
					return nil, fail
				}
			}
		}
	}

	return u, nil
}

// requireExternalChecksums enforces the rule that once a document is
// signed, every DataBlock addressing bytes outside the XML itself
// (attachment/url/path) must carry a checksum.
func requireExternalChecksums(root Element) error {
	var walk func(e Element) error
	walk = func(e Element) error {
		if loc := e.Attr("location"); loc != "" {
			parsed, err := parseLocation(loc)
			if err == nil && (parsed.Kind == "attachment" || parsed.Kind == "url" || parsed.Kind == "path") {
				if e.Attr("checksum") == "" {
					return errs.NewSignatureError("checksum", "external DataBlock missing mandatory checksum in signed document: "+e.LocalName())
				}
			}
		}
		for _, c := range e.Children {
			if err := walk(c); err != nil {
				return err
			}
		}

		return nil
	}

	return walk(root)
}

// reportOrFail applies StrictValidation: in strict mode a per-element
// decode error aborts the whole unit; in relaxed mode it is reported
// via OnWarning and the element is skipped.
func reportOrFail(opts UnitOptions, err error) error {
	if opts.StrictValidation {
		return err
	}
	errs.Warn(opts.OnWarning, errs.Warning{Subsystem: "xisf", Detail: err.Error()})

	return nil
}
