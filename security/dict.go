package security

import "pdfsan/ir/raw"

// BuildEncryptDict synthesizes the Encrypt dictionary for the handler's
// configuration. The V/R pair and the crypt-filter method follow from
// (method, key length).
func (h *Handler) BuildEncryptDict() raw.Dictionary {
	d := raw.Dict()
	d.Set(raw.NameLiteral("Filter"), raw.NameLiteral("Standard"))
	d.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(h.cfg.KeyLength)))

	var v, r int64
	var cfm string
	switch {
	case h.cfg.Method == MethodRC4 && h.cfg.KeyLength == 40:
		v, r, cfm = 1, 2, "V2"
	case h.cfg.Method == MethodRC4:
		v, r, cfm = 2, 3, "V2"
	case h.cfg.Method == MethodAES && h.cfg.KeyLength == 128:
		v, r, cfm = 4, 4, "AESV2"
	case h.cfg.Method == MethodAES:
		v, r, cfm = 5, 6, "AESV3"
	default: // Identity
		d.Set(raw.NameLiteral("V"), raw.NumberInt(4))
		d.Set(raw.NameLiteral("StmF"), raw.NameLiteral("Identity"))
		d.Set(raw.NameLiteral("StrF"), raw.NameLiteral("Identity"))
		return d
	}
	d.Set(raw.NameLiteral("V"), raw.NumberInt(v))
	d.Set(raw.NameLiteral("R"), raw.NumberInt(r))

	stdCF := raw.Dict()
	stdCF.Set(raw.NameLiteral("CFM"), raw.NameLiteral(cfm))
	stdCF.Set(raw.NameLiteral("AuthEvent"), raw.NameLiteral("DocOpen"))
	stdCF.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(h.cfg.KeyLength/8)))
	cf := raw.Dict()
	cf.Set(raw.NameLiteral("StdCF"), stdCF)
	d.Set(raw.NameLiteral("CF"), cf)
	d.Set(raw.NameLiteral("StmF"), raw.NameLiteral("StdCF"))
	d.Set(raw.NameLiteral("StrF"), raw.NameLiteral("StdCF"))
	if !h.cfg.EncryptMetadata {
		d.Set(raw.NameLiteral("EncryptMetadata"), raw.Bool(false))
	}
	return d
}
