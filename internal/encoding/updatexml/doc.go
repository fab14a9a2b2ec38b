// Package updatexml encodes update catalogs as update.xml documents.
//
// The document is attribute-shaped and has a fixed layout:
//
//	<updates>
//	  <update type="minor" displayVersion="V" appVersion="V" platformVersion="V" buildID="B">
//	    <patch type="complete" URL="U" hashFunction="sha512" hashValue="H" size="N"/>
//	  </update>
//	</updates>
//
// Marshal writes it by hand so the output is byte-stable. Unmarshal uses
// encoding/xml and is meant for checking documents, not for serving them.
package updatexml
