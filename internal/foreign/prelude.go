package foreign

// PreludeModule is the module holding the predeclared Foundation subset.
const PreludeModule = "Foundation"

func installPrelude(c *Context) {
	m := c.Module(PreludeModule)

	typedef := func(name string, t *Type) *Decl {
		d := &Decl{Kind: KindTypedef, Name: name, Type: t}
		c.Add(m, d)
		return d
	}
	boolT := typedef("BOOL", Builtin("signed char"))
	typedef("NSInteger", Builtin("long"))
	nsuint := typedef("NSUInteger", Builtin("unsigned long"))
	typedef("CGFloat", Builtin("double"))
	typedef("NSTimeInterval", Builtin("double"))

	zone := c.DeclareTag(m, KindRecord, "_NSZone")

	nsobjectProto := c.DefineProtocol(m, "NSObject")
	copying := c.DefineProtocol(m, "NSCopying")

	idT := func() *Type { return ObjCPointer(nil) }
	method := func(container *Decl, sel string, instance bool, result *Type, params ...*Decl) *Decl {
		meth := NewMethod(sel, instance, result, params...)
		c.AddMember(container, meth)
		return meth
	}
	property := func(container *Decl, name string, t *Type) *Decl {
		p := NewProperty(name, t, true)
		p.ReadOnly = true
		c.AddMember(container, p)
		return p
	}

	method(nsobjectProto, "isEqual:", true, TypedefType(boolT), NewParam("object", idT().WithNullability(NullNullable)))
	property(nsobjectProto, "hash", TypedefType(nsuint))
	method(copying, "copyWithZone:", true, idT().WithNullability(NullNonNull),
		NewParam("zone", PointerTo(TagType(zone)).WithNullability(NullNullable)))

	class := func(name string, super *Decl) *Decl {
		d := c.DefineClass(m, name)
		d.Super = super
		d.Protocols = []*Decl{nsobjectProto}
		return d
	}
	root := class("NSObject", nil)
	rootInit := method(root, "init", true, InstanceType().WithNullability(NullNonNull))
	rootInit.Attrs.DesignatedInit = true
	method(root, "isEqual:", true, TypedefType(boolT), NewParam("object", idT().WithNullability(NullNullable)))
	property(root, "hash", TypedefType(nsuint))

	str := class("NSString", root)
	str.Protocols = append(str.Protocols, copying)
	property(root, "description", ObjCPointer(str).WithNullability(NullNonNull))
	property(str, "length", TypedefType(nsuint))
	method(str, "initWithString:", true, InstanceType().WithNullability(NullNonNull),
		NewParam("aString", ObjCPointer(str).WithNullability(NullNonNull)))

	arr := class("NSArray", root)
	property(arr, "count", TypedefType(nsuint))
	method(arr, "objectAtIndexedSubscript:", true, idT().WithNullability(NullNonNull),
		NewParam("idx", TypedefType(nsuint)))

	dict := class("NSDictionary", root)
	property(dict, "count", TypedefType(nsuint))
	method(dict, "objectForKeyedSubscript:", true, idT().WithNullability(NullNullable),
		NewParam("key", ObjCPointer(nil, copying).WithNullability(NullNonNull)))

	class("NSSet", root)
	class("NSNumber", root)

	errClass := class("NSError", root)
	property(errClass, "domain", ObjCPointer(str).WithNullability(NullNonNull))
	property(errClass, "code", TypedefType(c.LookupTypedef("NSInteger")))
}
